package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.0", want: V10},
		{in: "1.7", want: V17},
		{in: "2.0", want: V20},
		{in: "1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		v, err := ParseVersion(tc.in)
		if tc.wantErr {
			require.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, v)
	}
}

func TestVersionOrdering(t *testing.T) {
	require.True(t, V14.Less(V15))
	require.True(t, V17.Less(V20))
	require.False(t, V15.Less(V15))
	require.False(t, V20.Less(V17))

	require.Equal(t, V17, V14.Max(V17))
	require.Equal(t, V17, V17.Max(V10))
	require.Equal(t, "1.6", V16.String())
}

package pdf

import (
	"fmt"

	"github.com/pkg/errors"
)

// Version is a declared PDF version, e.g. 1.7.
type Version struct {
	Major int
	Minor int
}

// The versions a document can declare.
var (
	V10 = Version{1, 0}
	V11 = Version{1, 1}
	V12 = Version{1, 2}
	V13 = Version{1, 3}
	V14 = Version{1, 4}
	V15 = Version{1, 5}
	V16 = Version{1, 6}
	V17 = Version{1, 7}
	V20 = Version{2, 0}
)

// ParseVersion converts a "major.minor" string to a Version.
func ParseVersion(s string) (Version, error) {
	var v Version
	n, err := fmt.Sscanf(s, "%d.%d", &v.Major, &v.Minor)
	if err != nil || n != 2 {
		return Version{}, errors.Errorf("invalid version string %q", s)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Max returns the newer of v and other.
func (v Version) Max(other Version) Version {
	if v.Less(other) {
		return other
	}
	return v
}

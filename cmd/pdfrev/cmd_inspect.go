package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gettalong/hexapdf-sub011/internal/document"
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

var cmdInspect = &cobra.Command{
	Use:   "inspect [flags] FILE ...",
	Short: "Print the revision structure of PDF files",
	Long: `
The "inspect" command loads each file, walks its revision chain and prints
per-revision statistics: cross-reference encoding, object counts, free
entries and unreachable objects.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	Args:              cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if err := runInspect(path); err != nil {
				return err
			}
		}
		return nil
	},
}

// InspectOptions bundles all options for the inspect command.
type InspectOptions struct {
	Unused bool
}

var inspectOptions InspectOptions

func init() {
	cmdRoot.AddCommand(cmdInspect)

	f := cmdInspect.Flags()
	f.BoolVar(&inspectOptions.Unused, "unused", false, "also list unreachable objects")
}

func runInspect(path string) error {
	doc, err := document.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	fmt.Printf("%s: version %s, %d revision(s)\n", path, doc.Version(), doc.Chain().Len())

	i := 0
	doc.Chain().Each(func(rev *revision.Revision) bool {
		encoding := "table"
		if !rev.XRefStream.IsDirect() {
			encoding = "stream"
		}
		inUse, inStream, free := 0, 0, 0
		rev.Section.Each(func(id pdf.ObjectID, loc xref.Location) bool {
			switch loc.Kind {
			case xref.Free:
				free++
			case xref.InStream:
				inStream++
			default:
				inUse++
			}
			return true
		})
		fmt.Printf("  revision %d: xref %s at offset %d, %d in use, %d in streams, %d free\n",
			i, encoding, rev.Offset, inUse, inStream, free)
		i++
		return true
	})

	if inspectOptions.Unused {
		unused, err := doc.DereferenceAll()
		if err != nil {
			return err
		}
		fmt.Printf("  %d unreachable object(s)\n", len(unused))
		for _, obj := range unused {
			fmt.Printf("    %v\n", obj.ID)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "pdfrev",
	Short: "Inspect and rewrite PDF revision chains",
	Long: `
pdfrev reads PDF files built out of incremental revisions, resolves objects
across the whole chain and rewrites the file: collapsing revisions, dropping
unreachable objects, packing objects into object streams and pruning
default-valued dictionary entries.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

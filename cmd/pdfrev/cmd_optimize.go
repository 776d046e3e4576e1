package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gettalong/hexapdf-sub011/internal/document"
)

var cmdOptimize = &cobra.Command{
	Use:   "optimize [flags] FILE ...",
	Short: "Rewrite PDF files into their smallest single-revision form",
	Long: `
The "optimize" command collapses each file's revision chain into a single
revision, drops unreachable objects, prunes default-valued dictionary
entries and packs eligible objects into object streams. Files are
processed concurrently.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	Args:              cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimize(args)
	},
}

// OptimizeOptions bundles all options for the optimize command.
type OptimizeOptions struct {
	Output        string
	NoCompact     bool
	NoPrune       bool
	ObjectStreams string
	GroupSize     int
	Jobs          int
}

var optimizeOptions OptimizeOptions

func init() {
	cmdRoot.AddCommand(cmdOptimize)

	f := cmdOptimize.Flags()
	f.StringVar(&optimizeOptions.Output, "output", "", "output path (single input only; default: INPUT.opt.pdf)")
	f.BoolVar(&optimizeOptions.NoCompact, "no-compact", false, "keep the revision chain as is")
	f.BoolVar(&optimizeOptions.NoPrune, "no-prune", false, "keep default-valued dictionary entries")
	f.StringVar(&optimizeOptions.ObjectStreams, "object-streams", "generate", "object stream handling: generate, delete or preserve")
	f.IntVar(&optimizeOptions.GroupSize, "group-size", 0, "maximum members per generated object stream (default 200)")
	f.IntVar(&optimizeOptions.Jobs, "jobs", 4, "process `n` files concurrently")
}

func runOptimize(paths []string) error {
	if optimizeOptions.Output != "" && len(paths) != 1 {
		return fmt.Errorf("--output requires exactly one input file")
	}

	opts, err := buildOptimizeOptions()
	if err != nil {
		return err
	}

	wg := &errgroup.Group{}
	wg.SetLimit(optimizeOptions.Jobs)
	for _, path := range paths {
		path := path
		wg.Go(func() error { return optimizeOne(path, opts) })
	}
	return wg.Wait()
}

func buildOptimizeOptions() (document.OptimizeOptions, error) {
	opts := document.DefaultOptimizeOptions()
	opts.Compact = !optimizeOptions.NoCompact
	opts.PruneDefaults = !optimizeOptions.NoPrune
	if optimizeOptions.GroupSize > 0 {
		opts.StreamOptions.GroupSize = optimizeOptions.GroupSize
	}

	switch strings.ToLower(optimizeOptions.ObjectStreams) {
	case "generate":
		opts.ObjectStreams = document.ObjectStreamsGenerate
	case "delete":
		opts.ObjectStreams = document.ObjectStreamsDelete
	case "preserve":
		opts.ObjectStreams = document.ObjectStreamsPreserve
	default:
		return opts, fmt.Errorf("unknown object-streams mode %q", optimizeOptions.ObjectStreams)
	}
	return opts, nil
}

func optimizeOne(path string, opts document.OptimizeOptions) error {
	doc, err := document.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	if err := doc.Optimize(opts); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := optimizeOptions.Output
	if out == "" {
		ext := filepath.Ext(path)
		out = strings.TrimSuffix(path, ext) + ".opt" + ext
	}
	return doc.Save(out, document.WriteOptions{})
}

package document

// OptimizeOptions selects which rewrite tasks run and how.
type OptimizeOptions struct {
	// Compact collapses the revision chain and drops unreachable objects.
	Compact bool
	// PruneDefaults removes optional fields holding their documented
	// default value.
	PruneDefaults bool
	// ObjectStreams selects the container strategy.
	ObjectStreams ObjectStreamMode
	// StreamOptions tunes container generation; zero values take the
	// defaults.
	StreamOptions ObjectStreamOptions
}

// DefaultOptimizeOptions returns the full optimization pipeline: prune,
// compact, regenerate containers, raise the header version as needed.
func DefaultOptimizeOptions() OptimizeOptions {
	return OptimizeOptions{
		Compact:       true,
		PruneDefaults: true,
		ObjectStreams: ObjectStreamsGenerate,
		StreamOptions: DefaultObjectStreamOptions(),
	}
}

// Optimize runs the selected rewrite tasks in their required order.
// Pruning runs first so compaction sees the smallest graph, and container
// generation always runs on a compacted chain so member numbering is
// dense and stable.
func (d *Document) Optimize(opts OptimizeOptions) error {
	if opts.PruneDefaults {
		if err := d.PruneFieldDefaults(); err != nil {
			return err
		}
	}

	if opts.Compact || opts.ObjectStreams == ObjectStreamsGenerate {
		if err := d.Compact(); err != nil {
			return err
		}
	}

	switch opts.ObjectStreams {
	case ObjectStreamsGenerate:
		if err := d.GenerateObjectStreams(opts.StreamOptions); err != nil {
			return err
		}
	case ObjectStreamsDelete:
		if err := d.DeleteObjectStreams(); err != nil {
			return err
		}
	}

	if _, err := d.RaiseToMinimumVersion(); err != nil {
		return err
	}
	return nil
}

package analyzer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AnalyzeFiles analyzes paths with up to workers files in flight and merges
// the per-file states in path order. With workers <= 1 the files are read
// sequentially into a single state. The first unreadable file cancels the
// remaining work and its error is returned; no partial state is returned.
//
// Hooks passed in opts are shared by every worker and must be safe for
// concurrent use when workers > 1.
func AnalyzeFiles(ctx context.Context, paths []string, g Granularity, workers int, opts ...AnalyzerOption) (*State, error) {
	if workers <= 1 || len(paths) <= 1 {
		a := NewAnalyzer(g, opts...)
		if err := a.ConsumeFiles(ctx, paths); err != nil {
			return nil, err
		}
		return a.State(), nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	// Each worker writes only its own slot
	partials := make([]*State, len(paths))

	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			a := NewAnalyzer(g, opts...)
			if err := a.ConsumeFile(ctx, path); err != nil {
				return err
			}
			partials[i] = a.State()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := NewState(g)
	for _, partial := range partials {
		if err := merged.Merge(partial); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

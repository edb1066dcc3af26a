package repo

import (
	"context"

	"github.com/roach88/akasha/internal/index"
)

// OpenIndex opens the derived query cache under the data directory.
func (r *Repository) OpenIndex() (*index.Index, error) {
	return index.Open(r.Layout.IndexPath(), index.WithLogger(r.logger))
}

// RebuildIndex repopulates the query cache from every cube.
func (r *Repository) RebuildIndex(ctx context.Context) (index.Stats, error) {
	ix, err := r.OpenIndex()
	if err != nil {
		return index.Stats{}, err
	}
	defer ix.Close()
	return ix.Rebuild(ctx, r.Layout)
}

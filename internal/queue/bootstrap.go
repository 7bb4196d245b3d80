package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"lillith/internal/apperrors"
	"lillith/internal/logger"
	"lillith/models"
)

// PointCounter reports how many points a collection holds.
type PointCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// BootstrapEmpty queues BOOKS_DIR/<collection> for every searchable
// collection that is missing or empty. It returns the collections queued.
func BootstrapEmpty(ctx context.Context, store PointCounter, dispatch DispatchFunc, booksDir string, collections []string) ([]string, error) {
	var queued []string
	for _, collection := range collections {
		n, err := store.Count(ctx, collection)
		if err != nil && !errors.Is(err, apperrors.ErrCollectionNotFound) {
			return queued, err
		}
		if n > 0 {
			logger.Debug("Collection already populated", "collection", collection, "points", n)
			continue
		}

		dir := filepath.Join(booksDir, collection)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			logger.Warn("Collection is empty and has no books folder", "collection", collection, "dir", dir)
			continue
		}

		if _, err := dispatch(ctx, dir, models.Metadata{Collection: collection}); err != nil {
			return queued, err
		}
		logger.Info("Queued bootstrap ingestion", "collection", collection, "dir", dir)
		queued = append(queued, collection)
	}
	return queued, nil
}

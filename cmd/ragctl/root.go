package main

import (
	"context"

	"lillith/internal/app"
	"lillith/internal/config"
	"lillith/internal/logger"
	"lillith/models"

	"github.com/spf13/cobra"
)

type ingester interface {
	Ingest(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestStats, error)
}

type searcher interface {
	Retrieve(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error)
}

// backend is what the commands run against.
type backend struct {
	ingester
	searcher
	close func() error
}

type backendFunc func() (*backend, error)

func openBackend() (*backend, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(cfg)

	rag, err := app.NewRAG(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &backend{ingester: rag.Pipeline, searcher: rag.Retriever, close: rag.Close}, nil
}

func newRootCmd(open backendFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Ingest and search the Islamic texts corpus",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newIngestCmd(open), newSearchCmd(open))
	return root
}

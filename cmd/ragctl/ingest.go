package main

import (
	"errors"
	"fmt"

	"lillith/models"

	"github.com/spf13/cobra"
)

func newIngestCmd(open backendFunc) *cobra.Command {
	var meta models.Metadata

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a PDF file or a folder of PDFs",
		Long: `Loads, cleans, chunks and embeds every PDF under path and stores the
resulting points in the given collection. Sub-folder names become the
source tag unless --source is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if meta.Collection == "" {
				return errors.New("--collection is required")
			}

			b, err := open()
			if err != nil {
				return err
			}
			defer b.close()

			stats, err := b.Ingest(cmd.Context(), args[0], meta)
			if stats != nil {
				cmd.Printf("documents: %d  chunks: %d  stored: %d  dropped: %d\n",
					stats.DocumentsProcessed, stats.ChunksProcessed, stats.PointsStored, stats.ChunksDropped)
			}
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&meta.Collection, "collection", "c", "", "target collection (required)")
	f.StringVar(&meta.Title, "title", "", "book title (defaults to the file name)")
	f.StringVar(&meta.Author, "author", "", "author")
	f.StringVar(&meta.Category, "category", "", "category")
	f.StringVar(&meta.Authenticity, "authenticity", "", "authenticity grading")
	f.StringVar(&meta.Source, "source", "", "source tag for every document")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"lillith/models"

	"github.com/spf13/cobra"
)

func newSearchCmd(open backendFunc) *cobra.Command {
	var (
		k      int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <collection> <query>",
		Short: "Similarity search over a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open()
			if err != nil {
				return err
			}
			defer b.close()

			query := strings.Join(args[1:], " ")
			results, err := b.Retrieve(cmd.Context(), args[0], query, k)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of results (default SEARCH_TOP_K)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, results []models.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i, r := range results {
		title, _ := r.Metadata["title"].(string)
		if title == "" {
			title, _ = r.Metadata["filepath"].(string)
		}
		cmd.Printf("[%d] %s (%.3f)\n", i+1, title, r.Score)
		if src, ok := r.Metadata["source"].(string); ok && src != "" {
			cmd.Printf("    Source: %s\n", src)
		}
		cmd.Printf("    %s\n\n", snippet(r.Text, 240))
	}
}

func snippet(text string, n int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}

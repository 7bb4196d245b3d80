package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"lillith/models"
	"lillith/utils"

	"github.com/gin-gonic/gin"
)

const maxSearchK = 50

// Searcher is implemented by *tools.Retriever.
type Searcher interface {
	ResolveCollection(name string) (string, error)
	Retrieve(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error)
}

// SetupSearchRoutes registers GET /api/search?collection=&q=&k=.
func SetupSearchRoutes(router *gin.Engine, searcher Searcher) {
	router.GET("/api/search", func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if query == "" {
			utils.RespondWithBadRequest(c, "Query parameter q is required", nil)
			return
		}

		k := 0
		if raw := c.Query("k"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxSearchK {
				utils.RespondWithBadRequest(c, "k must be between 1 and 50", gin.H{"k": raw})
				return
			}
			k = n
		}

		collection, err := searcher.ResolveCollection(c.Query("collection"))
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		results, err := searcher.Retrieve(c.Request.Context(), collection, query, k)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"collection": collection,
			"query":      query,
			"results":    results,
			"total":      len(results),
		})
	})
}

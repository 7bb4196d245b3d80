package routes

import (
	"context"
	"errors"
	"net/http"
	"os"

	"lillith/internal/database"
	"lillith/internal/ingest"
	"lillith/models"
	"lillith/utils"

	"github.com/gin-gonic/gin"
)

// IngestDispatcher is implemented by *queue.Dispatcher.
type IngestDispatcher interface {
	Dispatch(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestionRun, error)
}

// SetupIngestRoutes registers the asynchronous ingestion endpoints. The
// source path is resolved on the worker host, which shares BOOKS_DIR with
// the API.
func SetupIngestRoutes(router *gin.Engine, dispatcher IngestDispatcher, runs database.RunStore) {
	api := router.Group("/api/ingest")

	api.POST("", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		info, err := os.Stat(req.SourcePath)
		if err != nil {
			utils.RespondWithBadRequest(c, "Source path is not readable", gin.H{"source_path": req.SourcePath})
			return
		}
		if !info.IsDir() && !ingest.IsSupported(req.SourcePath) {
			utils.RespondWithBadRequest(c, "Only PDF files are supported", gin.H{"source_path": req.SourcePath})
			return
		}

		run, err := dispatcher.Dispatch(c.Request.Context(), req.SourcePath, req.Metadata)
		if err != nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable, "enqueue_failed", "Failed to queue ingestion", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, run)
	})

	api.GET("/:id", func(c *gin.Context) {
		run, err := runs.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, database.ErrRunNotFound) {
			utils.RespondWithNotFound(c, "Ingestion run not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve ingestion run", nil)
			return
		}
		c.JSON(http.StatusOK, run)
	})
}

package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/calder-ai/relay/internal/store"
	"github.com/calder-ai/relay/pkg/api"
)

type AttemptHandler struct {
	repo store.Repository
}

func NewAttemptHandler(repo store.Repository) *AttemptHandler {
	return &AttemptHandler{repo: repo}
}

// Recent returns the latest fallback chain runs, newest first.
func (h *AttemptHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.Error(api.BadRequestError("limit must be an integer between 1 and 500"))
			return
		}
		limit = n
	}

	attempts, err := h.repo.Attempts().Recent(c.Request.Context(), limit)
	if err != nil {
		c.Error(api.InternalError("Failed to query attempt history", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   attempts,
	})
}

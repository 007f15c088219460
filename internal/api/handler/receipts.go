package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pramaanvault/certvault/internal/receipts"
	"go.uber.org/zap"
)

// ReceiptsHandler exposes the local batch receipt journal. It is only mounted
// when the journal is configured.
type ReceiptsHandler struct {
	store  *receipts.Store
	logger *zap.Logger
}

// NewReceiptsHandler creates a new ReceiptsHandler.
func NewReceiptsHandler(store *receipts.Store, logger *zap.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{store: store, logger: logger}
}

// Register mounts the receipts route on the given router group.
func (h *ReceiptsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/receipts", h.List)
}

// List handles GET /receipts. It returns the most recent confirmed batch
// submissions, newest first. The journal is informational only; the ledger
// remains the source of truth for what is anchored.
func (h *ReceiptsHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
		return
	}

	list, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list batch receipts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list receipts"})
		return
	}
	if list == nil {
		list = []*receipts.BatchReceipt{}
	}
	c.JSON(http.StatusOK, gin.H{"receipts": list, "count": len(list)})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pramaanvault/certvault/internal/ledger"
	"go.uber.org/zap"
)

// InfoHandler exposes the read-only ledger connection details.
type InfoHandler struct {
	ledger ledger.Client
	logger *zap.Logger
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(client ledger.Client, logger *zap.Logger) *InfoHandler {
	return &InfoHandler{ledger: client, logger: logger}
}

// Register mounts the info route on the given router group.
func (h *InfoHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/info", h.Info)
}

// Info handles GET /info. It returns the ledger address, the active signing
// identity, and the network identifier.
func (h *InfoHandler) Info(c *gin.Context) {
	info, err := h.ledger.Info(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger info", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_address": info.ContractAddress,
		"active_signer":    string(info.DefaultSigner),
		"network_id":       info.NetworkID,
	})
}

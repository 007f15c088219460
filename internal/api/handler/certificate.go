// Package handler exposes the certificate ingestion and verification
// operations over HTTP.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/certificate"
	"github.com/pramaanvault/certvault/internal/ledger"
	"go.uber.org/zap"
)

// CertificateHandler handles HTTP requests for certificate ingestion and
// verification.
type CertificateHandler struct {
	ingestor *certificate.Ingestor
	verifier *certificate.Verifier
	logger   *zap.Logger
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(ingestor *certificate.Ingestor, verifier *certificate.Verifier, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{ingestor: ingestor, verifier: verifier, logger: logger}
}

// Register mounts the certificate routes on the given router group.
func (h *CertificateHandler) Register(rg *gin.RouterGroup) {
	certs := rg.Group("/certificates")
	{
		certs.POST("/ingest", h.Ingest)
		certs.POST("/verify", h.Verify)
	}
}

// Ingest handles POST /certificates/ingest, a multipart CSV upload. The
// upload is spooled to a uniquely named temp file which is removed on every
// exit path.
func (h *CertificateHandler) Ingest(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+"_"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		h.logger.Error("spool upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	defer os.Remove(tmpPath) //nolint:errcheck

	f, err := os.Open(tmpPath)
	if err != nil {
		h.logger.Error("open spooled upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close() //nolint:errcheck

	records, err := certificate.ParseCSV(f)
	if err != nil {
		h.respondError(c, "parse upload", err)
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), records)
	if err != nil {
		RecordIngest(false, 0)
		h.respondError(c, "ingest batch", err)
		return
	}

	RecordIngest(true, result.HashCount)
	c.JSON(http.StatusOK, result)
}

// Verify handles POST /certificates/verify, a JSON body carrying the six
// certificate fields. Values are trimmed like CSV ingestion trims them, so
// padded input still matches its ingested form. A negative verification is a
// 200 with is_valid=false; only ledger trouble produces an error status.
func (h *CertificateHandler) Verify(c *gin.Context) {
	var record canonical.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must carry all six certificate fields"})
		return
	}

	record = record.Trimmed()
	fields := record.Fields()
	for _, name := range canonical.FieldNames {
		if fields[name] == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("field %q must not be blank", name)})
			return
		}
	}

	result, err := h.verifier.Verify(c.Request.Context(), record)
	if err != nil {
		h.respondError(c, "verify certificate", err)
		return
	}

	RecordVerification(result.IsValid)
	c.JSON(http.StatusOK, result)
}

// respondError maps the error taxonomy to HTTP statuses: validation → 400,
// ledger rejection → 422, ledger unavailable → 503, anything else → 500.
func (h *CertificateHandler) respondError(c *gin.Context, op string, err error) {
	var valErr *certificate.ValidationError
	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error()})
	case errors.Is(err, ledger.ErrRejected):
		h.logger.Warn(op, zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnavailable):
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable, retry later"})
	default:
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

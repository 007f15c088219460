package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/ledger"
	"go.uber.org/zap"
)

// VerificationResult is the outcome of checking one candidate record against
// the ledger. Timestamp and Issuer are populated only when IsValid is true;
// otherwise they stay at their zero values.
type VerificationResult struct {
	IsValid       bool      `json:"is_valid"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	CandidateHash string    `json:"candidate_hash"`
}

// Verifier answers whether a candidate record's hash was previously anchored.
// Verification is a pure read: it is safe to call concurrently and repeatedly
// with no state change anywhere.
type Verifier struct {
	ledger ledger.Client
	logger *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(client ledger.Client, logger *zap.Logger) *Verifier {
	return &Verifier{ledger: client, logger: logger}
}

// Verify hashes the candidate record with the same normalization and
// canonicalization used at ingestion and looks the hash up in the ledger. An
// absent hash is a valid negative result, not an error; only ledger
// unavailability fails the call.
func (v *Verifier) Verify(ctx context.Context, record canonical.Record) (*VerificationResult, error) {
	hash := canonical.HashRecord(record.Trimmed())

	entry, err := v.ledger.Lookup(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", hash, err)
	}

	result := &VerificationResult{
		IsValid:       entry.Exists,
		CandidateHash: hash.Hex(),
	}
	if entry.Exists {
		result.Timestamp = entry.Timestamp
		result.Issuer = string(entry.Issuer)
	}

	v.logger.Debug("verification performed",
		zap.String("hash", hash.Hex()),
		zap.Bool("is_valid", result.IsValid),
	)
	return result, nil
}

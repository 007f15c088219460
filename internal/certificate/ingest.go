// Package certificate holds the two core operations of the service: batch
// ingestion (anchor certificate hashes in the ledger) and verification
// (check a candidate record against a previously anchored hash).
package certificate

import (
	"context"
	"fmt"

	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/ledger"
	"github.com/pramaanvault/certvault/internal/receipts"
	"go.uber.org/zap"
)

// IngestResult reports a confirmed batch submission.
type IngestResult struct {
	HashCount    int              `json:"hash_count"`
	TxID         string           `json:"tx_id"`
	CostConsumed ledger.CostUnits `json:"cost_consumed"`
}

// BatchRecorder journals confirmed submissions. *receipts.Store satisfies
// this interface.
type BatchRecorder interface {
	Record(ctx context.Context, r *receipts.BatchReceipt) error
}

// Ingestor anchors batches of certificate records in the ledger.
type Ingestor struct {
	ledger   ledger.Client
	price    ledger.UnitPrice
	recorder BatchRecorder // nil = no receipt journaling
	logger   *zap.Logger
}

// NewIngestor creates an Ingestor submitting at the default unit price.
func NewIngestor(client ledger.Client, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		ledger: client,
		price:  ledger.DefaultUnitPrice,
		logger: logger,
	}
}

// SetUnitPrice overrides the unit price applied to submissions.
func (i *Ingestor) SetUnitPrice(p ledger.UnitPrice) {
	if p != 0 {
		i.price = p
	}
}

// SetRecorder configures the receipt journal written after each confirmed
// submission.
func (i *Ingestor) SetRecorder(r BatchRecorder) {
	i.recorder = r
}

// Ingest canonicalizes and hashes every record in input order, then submits
// all hashes as one atomic ledger transaction: estimate the cost, buffer the
// ceiling by 20%, append. Submitting the same records twice produces two
// ledger transactions; callers wanting dedup must Lookup each hash first.
//
// On any ledger failure the error is returned as-is and no hash may be
// considered recorded: the ledger's atomicity guarantees there is no partial
// state to clean up.
func (i *Ingestor) Ingest(ctx context.Context, records []canonical.Record) (*IngestResult, error) {
	if len(records) == 0 {
		return nil, &ValidationError{Reason: "empty record set"}
	}

	// Trimmed keeps ingestion and verification hashing the same normalized
	// form no matter which entry point supplied the record.
	hashes := make([]canonical.Hash, len(records))
	for idx, r := range records {
		hashes[idx] = canonical.HashRecord(r.Trimmed())
	}

	signers, err := i.ledger.Signers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list signers: %w", err)
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("list signers: %w: no identities available", ledger.ErrUnavailable)
	}
	signer := signers[0]

	estimate, err := i.ledger.EstimateCost(ctx, hashes, signer)
	if err != nil {
		return nil, fmt.Errorf("estimate batch cost: %w", err)
	}
	ceiling := ledger.BufferedCeiling(estimate)

	conf, err := i.ledger.AppendBatch(ctx, hashes, signer, ceiling, i.price)
	if err != nil {
		return nil, fmt.Errorf("append batch of %d hashes: %w", len(hashes), err)
	}

	i.logger.Info("batch anchored",
		zap.Int("hashes", len(hashes)),
		zap.String("tx_id", conf.TxID),
		zap.Uint64("cost_estimate", uint64(estimate)),
		zap.Uint64("cost_consumed", uint64(conf.CostConsumed)),
		zap.String("signer", string(signer)),
	)

	if i.recorder != nil {
		receipt := &receipts.BatchReceipt{
			TxID:         conf.TxID,
			HashCount:    len(hashes),
			Signer:       string(signer),
			CostConsumed: uint64(conf.CostConsumed),
		}
		// The batch is already confirmed on the ledger; a journal failure is
		// an operator inconvenience, not an ingestion failure.
		if err := i.recorder.Record(ctx, receipt); err != nil {
			i.logger.Warn("batch receipt journaling failed", zap.Error(err), zap.String("tx_id", conf.TxID))
		}
	}

	return &IngestResult{
		HashCount:    len(hashes),
		TxID:         conf.TxID,
		CostConsumed: conf.CostConsumed,
	}, nil
}

package certificate

import (
	"context"
	"errors"
	"testing"

	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/ledger"
	"github.com/pramaanvault/certvault/internal/receipts"
	"go.uber.org/zap"
)

// mockLedger counts calls and captures AppendBatch arguments.
type mockLedger struct {
	signersCalls  int
	estimateCalls int
	appendCalls   int
	lookupCalls   int

	estimate     ledger.CostUnits
	appendErr    error
	gotHashes    []canonical.Hash
	gotSigner    ledger.Identity
	gotCeiling   ledger.CostUnits
	gotPrice     ledger.UnitPrice
	confirmation ledger.Confirmation
}

func (m *mockLedger) Signers(context.Context) ([]ledger.Identity, error) {
	m.signersCalls++
	return []ledger.Identity{"0xissuer", "0xbackup"}, nil
}

func (m *mockLedger) EstimateCost(_ context.Context, hashes []canonical.Hash, _ ledger.Identity) (ledger.CostUnits, error) {
	m.estimateCalls++
	return m.estimate, nil
}

func (m *mockLedger) AppendBatch(_ context.Context, hashes []canonical.Hash, signer ledger.Identity, ceiling ledger.CostUnits, price ledger.UnitPrice) (*ledger.Confirmation, error) {
	m.appendCalls++
	m.gotHashes = hashes
	m.gotSigner = signer
	m.gotCeiling = ceiling
	m.gotPrice = price
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	return &m.confirmation, nil
}

func (m *mockLedger) Lookup(context.Context, canonical.Hash) (*ledger.Entry, error) {
	m.lookupCalls++
	return &ledger.Entry{}, nil
}

func (m *mockLedger) Info(context.Context) (*ledger.Info, error) { return &ledger.Info{}, nil }
func (m *mockLedger) Close()                                     {}

func sampleRecords() []canonical.Record {
	return []canonical.Record{
		{RollNo: "1", Name: "Alice", Course: "CS", Branch: "AI", Grade: "A", Year: "2024"},
		{RollNo: "2", Name: "Bob", Course: "CS", Branch: "AI", Grade: "B", Year: "2024"},
	}
}

func TestIngest_twoRecords(t *testing.T) {
	mock := &mockLedger{
		estimate:     61_000,
		confirmation: ledger.Confirmation{TxID: "0xabc", CostConsumed: 60_000},
	}
	ing := NewIngestor(mock, zap.NewNop())

	res, err := ing.Ingest(context.Background(), sampleRecords())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if res.HashCount != 2 {
		t.Errorf("HashCount = %d, want 2", res.HashCount)
	}
	if res.TxID != "0xabc" {
		t.Errorf("TxID = %s, want 0xabc", res.TxID)
	}
	if res.CostConsumed != 60_000 {
		t.Errorf("CostConsumed = %d, want 60000", res.CostConsumed)
	}
	if mock.appendCalls != 1 {
		t.Errorf("appendCalls = %d, want exactly one batch", mock.appendCalls)
	}
	if len(mock.gotHashes) != 2 {
		t.Fatalf("submitted %d hashes, want 2", len(mock.gotHashes))
	}
	if mock.gotSigner != "0xissuer" {
		t.Errorf("signer = %s, want the first listed identity", mock.gotSigner)
	}

	// Hash order must follow input order.
	if mock.gotHashes[0] != canonical.HashRecord(sampleRecords()[0]) {
		t.Error("first submitted hash is not the first record's hash")
	}
	if mock.gotHashes[1] != canonical.HashRecord(sampleRecords()[1]) {
		t.Error("second submitted hash is not the second record's hash")
	}
}

func TestIngest_costCeilingIsBufferedEstimate(t *testing.T) {
	for _, estimate := range []ledger.CostUnits{1, 100, 61_000, 999_999} {
		mock := &mockLedger{estimate: estimate}
		ing := NewIngestor(mock, zap.NewNop())

		if _, err := ing.Ingest(context.Background(), sampleRecords()); err != nil {
			t.Fatalf("Ingest(estimate=%d): %v", estimate, err)
		}
		want := ledger.BufferedCeiling(estimate)
		if mock.gotCeiling != want {
			t.Errorf("ceiling for estimate %d = %d, want %d", estimate, mock.gotCeiling, want)
		}
		if mock.gotCeiling < estimate {
			t.Errorf("ceiling %d below the raw estimate %d", mock.gotCeiling, estimate)
		}
	}
}

func TestIngest_emptyBatchMakesNoLedgerCall(t *testing.T) {
	mock := &mockLedger{}
	ing := NewIngestor(mock, zap.NewNop())

	_, err := ing.Ingest(context.Background(), nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	if n := mock.signersCalls + mock.estimateCalls + mock.appendCalls + mock.lookupCalls; n != 0 {
		t.Errorf("empty batch made %d ledger calls, want 0", n)
	}
}

func TestIngest_ledgerFailureSurfacesWithoutResult(t *testing.T) {
	mock := &mockLedger{
		estimate:  61_000,
		appendErr: ledger.ErrUnavailable,
	}
	ing := NewIngestor(mock, zap.NewNop())

	res, err := ing.Ingest(context.Background(), sampleRecords())
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if res != nil {
		t.Errorf("failed ingest returned a result: %+v", res)
	}
}

func TestIngest_usesFixedUnitPrice(t *testing.T) {
	mock := &mockLedger{estimate: 61_000}
	ing := NewIngestor(mock, zap.NewNop())

	if _, err := ing.Ingest(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if mock.gotPrice != ledger.DefaultUnitPrice {
		t.Errorf("price = %d, want DefaultUnitPrice", mock.gotPrice)
	}
}

// recorderFunc adapts a function to the BatchRecorder interface.
type recorderFunc func(ctx context.Context, r *receipts.BatchReceipt) error

func (f recorderFunc) Record(ctx context.Context, r *receipts.BatchReceipt) error { return f(ctx, r) }

func TestIngest_journalsReceiptAfterConfirmation(t *testing.T) {
	mock := &mockLedger{
		estimate:     61_000,
		confirmation: ledger.Confirmation{TxID: "0xdef", CostConsumed: 59_000},
	}
	ing := NewIngestor(mock, zap.NewNop())

	var got *receipts.BatchReceipt
	ing.SetRecorder(recorderFunc(func(_ context.Context, r *receipts.BatchReceipt) error {
		got = r
		return nil
	}))

	if _, err := ing.Ingest(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got == nil {
		t.Fatal("no receipt recorded")
	}
	if got.TxID != "0xdef" || got.HashCount != 2 || got.CostConsumed != 59_000 {
		t.Errorf("receipt = %+v", got)
	}
}

func TestIngest_journalFailureDoesNotFailIngest(t *testing.T) {
	mock := &mockLedger{estimate: 61_000, confirmation: ledger.Confirmation{TxID: "0x1"}}
	ing := NewIngestor(mock, zap.NewNop())
	ing.SetRecorder(recorderFunc(func(context.Context, *receipts.BatchReceipt) error {
		return errors.New("journal down")
	}))

	if _, err := ing.Ingest(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Ingest failed on journal error: %v", err)
	}
}

package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/pramaanvault/certvault/internal/canonical"
)

func testHashes(n int) []canonical.Hash {
	hashes := make([]canonical.Hash, n)
	for i := range hashes {
		hashes[i] = canonical.Sum([]byte{byte(i)})
	}
	return hashes
}

func TestMemory_appendThenLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("0x00000000000000000000000000000000000000aa")
	hashes := testHashes(2)

	cost, err := m.EstimateCost(ctx, hashes, m.signers[0])
	if err != nil {
		t.Fatalf("EstimateCost: %v", err)
	}

	conf, err := m.AppendBatch(ctx, hashes, m.signers[0], BufferedCeiling(cost), DefaultUnitPrice)
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if conf.TxID == "" {
		t.Error("confirmation has empty tx id")
	}
	if conf.CostConsumed != cost {
		t.Errorf("CostConsumed = %d, want %d", conf.CostConsumed, cost)
	}

	for _, h := range hashes {
		entry, err := m.Lookup(ctx, h)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", h, err)
		}
		if !entry.Exists {
			t.Errorf("hash %s not recorded", h)
		}
		if entry.Issuer != m.signers[0] {
			t.Errorf("issuer = %s, want %s", entry.Issuer, m.signers[0])
		}
		if entry.Timestamp.IsZero() {
			t.Error("recorded entry has zero timestamp")
		}
	}
}

func TestMemory_lookupAbsentHash(t *testing.T) {
	m := NewMemory()
	entry, err := m.Lookup(context.Background(), canonical.Sum([]byte("never recorded")))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Exists {
		t.Error("absent hash reported as existing")
	}
	if !entry.Timestamp.IsZero() || entry.Issuer != "" {
		t.Errorf("absent entry carries data: %+v", entry)
	}
}

func TestMemory_rejectsUnderProvisionedCeiling(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	hashes := testHashes(3)

	cost, _ := m.EstimateCost(ctx, hashes, m.signers[0])
	_, err := m.AppendBatch(ctx, hashes, m.signers[0], cost-1, DefaultUnitPrice)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	// Nothing must be recorded after a rejection.
	entry, _ := m.Lookup(ctx, hashes[0])
	if entry.Exists {
		t.Error("rejected batch left a recorded entry")
	}
}

func TestMemory_duplicateAppendKeepsFirstEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("0xaa00000000000000000000000000000000000000", "0xbb00000000000000000000000000000000000000")
	hashes := testHashes(1)
	cost, _ := m.EstimateCost(ctx, hashes, m.signers[0])

	if _, err := m.AppendBatch(ctx, hashes, m.signers[0], BufferedCeiling(cost), DefaultUnitPrice); err != nil {
		t.Fatalf("first AppendBatch: %v", err)
	}
	if _, err := m.AppendBatch(ctx, hashes, m.signers[1], BufferedCeiling(cost), DefaultUnitPrice); err != nil {
		t.Fatalf("second AppendBatch: %v", err)
	}

	entry, _ := m.Lookup(ctx, hashes[0])
	if entry.Issuer != m.signers[0] {
		t.Errorf("issuer = %s, want the first submitter %s", entry.Issuer, m.signers[0])
	}
}

func TestMemory_signers(t *testing.T) {
	m := NewMemory()
	signers, err := m.Signers(context.Background())
	if err != nil {
		t.Fatalf("Signers: %v", err)
	}
	if len(signers) == 0 {
		t.Fatal("expected at least one default signer")
	}
}

func TestMemory_info(t *testing.T) {
	m := NewMemory()
	info, err := m.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.NetworkID != "memory" {
		t.Errorf("NetworkID = %s, want memory", info.NetworkID)
	}
	if info.DefaultSigner == "" {
		t.Error("empty default signer")
	}
}

package certificate

import (
	"context"
	"testing"

	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/ledger"
	"go.uber.org/zap"
)

func TestVerify_roundTripAfterIngest(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory("0x00000000000000000000000000000000000000aa")
	ing := NewIngestor(mem, zap.NewNop())
	ver := NewVerifier(mem, zap.NewNop())

	records := sampleRecords()
	res, err := ing.Ingest(ctx, records)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.HashCount != 2 {
		t.Fatalf("HashCount = %d, want 2", res.HashCount)
	}

	alice := canonical.Record{RollNo: "1", Name: "Alice", Course: "CS", Branch: "AI", Grade: "A", Year: "2024"}
	got, err := ver.Verify(ctx, alice)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !got.IsValid {
		t.Fatal("ingested record did not verify")
	}
	if got.Timestamp.IsZero() {
		t.Error("valid result has zero timestamp")
	}
	if got.Issuer != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("issuer = %s, want the submitting signer", got.Issuer)
	}
	if got.CandidateHash != canonical.HashRecord(alice).Hex() {
		t.Errorf("candidate hash mismatch: %s", got.CandidateHash)
	}
}

func TestVerify_neverIngestedIsValidNegative(t *testing.T) {
	ver := NewVerifier(ledger.NewMemory(), zap.NewNop())

	record := canonical.Record{RollNo: "404", Name: "Nobody", Course: "CS", Branch: "AI", Grade: "F", Year: "1999"}
	got, err := ver.Verify(context.Background(), record)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.IsValid {
		t.Error("never-ingested record verified as valid")
	}
	if !got.Timestamp.IsZero() || got.Issuer != "" {
		t.Errorf("negative result carries timestamp/issuer: %+v", got)
	}
	if got.CandidateHash == "" {
		t.Error("negative result must still report the candidate hash")
	}
}

func TestVerify_paddedValuesNormalizeSymmetrically(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	ing := NewIngestor(mem, zap.NewNop())
	ver := NewVerifier(mem, zap.NewNop())

	padded := canonical.Record{RollNo: "1", Name: " Alice ", Course: "CS", Branch: "AI", Grade: "A", Year: "2024"}
	if _, err := ing.Ingest(ctx, []canonical.Record{padded}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Clean, padded, and differently padded forms of the same value must all
	// resolve to the one anchored hash.
	for _, name := range []string{"Alice", " Alice ", "Alice\t"} {
		candidate := padded
		candidate.Name = name
		got, err := ver.Verify(ctx, candidate)
		if err != nil {
			t.Fatalf("Verify(%q): %v", name, err)
		}
		if !got.IsValid {
			t.Errorf("Verify(%q) = invalid, want valid", name)
		}
	}
}

func TestVerify_mutatedFieldInvalidOriginalStillValid(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	ing := NewIngestor(mem, zap.NewNop())
	ver := NewVerifier(mem, zap.NewNop())

	original := canonical.Record{RollNo: "1", Name: "Alice", Course: "CS", Branch: "AI", Grade: "A", Year: "2024"}
	if _, err := ing.Ingest(ctx, []canonical.Record{original}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	mutated := original
	mutated.Grade = "B"
	got, err := ver.Verify(ctx, mutated)
	if err != nil {
		t.Fatalf("Verify(mutated): %v", err)
	}
	if got.IsValid {
		t.Error("mutated record verified as valid")
	}

	got, err = ver.Verify(ctx, original)
	if err != nil {
		t.Fatalf("Verify(original): %v", err)
	}
	if !got.IsValid {
		t.Error("original record no longer verifies after mutation attempt")
	}
}

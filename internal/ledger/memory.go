package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pramaanvault/certvault/internal/canonical"
)

// Cost model of the in-memory ledger: a flat transaction cost plus a
// per-hash storage cost, mirroring the shape of EVM gas accounting.
const (
	memBaseCost    CostUnits = 21_000
	memPerHashCost CostUnits = 20_000
)

// Memory is an in-process, thread-safe Client implementation. It is primarily
// useful for tests and for running the service without a chain node.
//
// Duplicate hashes in a later batch are left untouched (first write wins), so
// entries stay immutable like on the real ledger.
type Memory struct {
	mu      sync.RWMutex
	entries map[canonical.Hash]Entry
	signers []Identity
	txSeq   uint64
}

// NewMemory creates a Memory ledger. When no signers are given, a single
// well-known development identity is installed.
func NewMemory(signers ...Identity) *Memory {
	if len(signers) == 0 {
		signers = []Identity{"0x00000000000000000000000000000000000000aa"}
	}
	return &Memory{
		entries: make(map[canonical.Hash]Entry),
		signers: signers,
	}
}

// Signers implements Client.
func (m *Memory) Signers(_ context.Context) ([]Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Identity, len(m.signers))
	copy(out, m.signers)
	return out, nil
}

// EstimateCost implements Client. The estimate is deterministic and exact.
func (m *Memory) EstimateCost(_ context.Context, hashes []canonical.Hash, _ Identity) (CostUnits, error) {
	return memBaseCost + memPerHashCost*CostUnits(len(hashes)), nil
}

// AppendBatch implements Client. The whole batch is recorded under one lock,
// so it is atomic with respect to Lookup.
func (m *Memory) AppendBatch(ctx context.Context, hashes []canonical.Hash, signer Identity, ceiling CostUnits, _ UnitPrice) (*Confirmation, error) {
	cost, _ := m.EstimateCost(ctx, hashes, signer)
	if ceiling < cost {
		return nil, fmt.Errorf("append batch: ceiling %d below cost %d: %w", ceiling, cost, ErrRejected)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	for _, h := range hashes {
		if _, ok := m.entries[h]; ok {
			continue
		}
		m.entries[h] = Entry{Exists: true, Timestamp: now, Issuer: signer}
	}

	m.txSeq++
	return &Confirmation{
		TxID:         fmt.Sprintf("0x%064x", m.txSeq),
		CostConsumed: cost,
	}, nil
}

// Lookup implements Client.
func (m *Memory) Lookup(_ context.Context, hash canonical.Hash) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[hash]
	if !ok {
		return &Entry{Exists: false}, nil
	}
	return &e, nil
}

// Info implements Client.
func (m *Memory) Info(_ context.Context) (*Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Info{
		ContractAddress: "in-memory",
		DefaultSigner:   m.signers[0],
		NetworkID:       "memory",
	}, nil
}

// Close implements Client.
func (m *Memory) Close() {}

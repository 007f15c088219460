// Package ledger abstracts the external append-only certificate ledger.
//
// The ledger stores one immutable entry per certificate hash: who recorded it
// and when. Entries are created via an atomic batch append and never updated
// or deleted. Two implementations of the Client interface are provided:
//   - Memory: in-process, for testing and development.
//   - EthClient: a deployed registry contract on an EVM chain, for production.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/pramaanvault/certvault/internal/canonical"
)

// ErrUnavailable reports that the ledger node could not be reached or did not
// answer in time. It is retryable. A timed-out batch submission may still
// have succeeded on the ledger; callers should re-query via Lookup to learn
// the ground truth.
var ErrUnavailable = errors.New("ledger unavailable")

// ErrRejected reports that the ledger refused a submission (cost ceiling
// exceeded, contract revert, malformed input). Retrying without re-estimating
// or fixing the input will fail again.
var ErrRejected = errors.New("submission rejected by ledger")

// Identity is an account authorized to submit batches, in its ledger-native
// string form (a hex address on EVM backends).
type Identity string

// Entry is the ledger's persisted record for one certificate hash.
// Exists=false means the hash was never recorded; Timestamp and Issuer are
// only meaningful when Exists is true.
type Entry struct {
	Exists    bool
	Timestamp time.Time
	Issuer    Identity
}

// Confirmation reports the outcome of a confirmed batch append.
type Confirmation struct {
	TxID         string
	CostConsumed CostUnits
}

// Info describes the ledger connection: where entries live and who signs.
type Info struct {
	ContractAddress string
	DefaultSigner   Identity
	NetworkID       string
}

// Client is the connection to the external ledger. All ledger-facing calls
// block until the ledger answers or ctx expires; a deadline hit surfaces as
// ErrUnavailable. A single Client is safe for concurrent use and owns no
// caller-visible mutable state.
type Client interface {
	// Signers lists the identities authorized to submit batches. The first
	// entry is the default submitting identity.
	Signers(ctx context.Context) ([]Identity, error)

	// EstimateCost dry-runs a batch append and returns its cost in ledger
	// cost units. Must be called before AppendBatch: the ledger enforces a
	// per-transaction cost ceiling and rejects under-provisioned submissions.
	EstimateCost(ctx context.Context, hashes []canonical.Hash, signer Identity) (CostUnits, error)

	// AppendBatch records all hashes atomically as one ledger transaction:
	// either every hash becomes a new entry or none does. ceiling bounds the
	// cost the transaction may consume; price is the fee per cost unit.
	AppendBatch(ctx context.Context, hashes []canonical.Hash, signer Identity, ceiling CostUnits, price UnitPrice) (*Confirmation, error)

	// Lookup is a read-only point query. A hash that was never recorded
	// yields an Entry with Exists=false and a nil error.
	Lookup(ctx context.Context, hash canonical.Hash) (*Entry, error)

	// Info returns the ledger address, default signer, and network identifier.
	Info(ctx context.Context) (*Info, error)

	// Close releases the ledger connection.
	Close()
}

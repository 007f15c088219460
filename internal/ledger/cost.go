package ledger

import "math/big"

// CostUnits measures ledger computation (gas on EVM backends). It is a
// distinct type from UnitPrice so the two cannot be confused.
type CostUnits uint64

// UnitPrice is the fee per cost unit in the ledger's smallest currency
// denomination (wei on EVM backends).
type UnitPrice uint64

// DefaultUnitPrice is the fixed unit price applied to every submission.
// Pricing is deliberately static: the ledger deployments this targets use a
// flat fee schedule, and estimate-time price discovery would reintroduce the
// drift the ceiling buffer exists to absorb.
const DefaultUnitPrice UnitPrice = 20_000_000_000 // 20 gwei

// ceilingMarginPercent is the safety margin added to a cost estimate when
// deriving the submission ceiling. Estimates can drift between the dry run
// and execution; an under-provisioned ceiling causes outright rejection.
const ceilingMarginPercent = 20

// BufferedCeiling returns the cost ceiling to submit with: the estimate plus
// a 20% margin, rounded up. The result is never below the raw estimate.
func BufferedCeiling(estimate CostUnits) CostUnits {
	margin := (estimate*ceilingMarginPercent + 99) / 100
	return estimate + margin
}

// Wei returns the unit price as a big integer for transaction construction.
func (p UnitPrice) Wei() *big.Int {
	return new(big.Int).SetUint64(uint64(p))
}

// Fee returns the maximum total fee of a transaction: ceiling × unit price.
func Fee(ceiling CostUnits, price UnitPrice) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(uint64(ceiling)), price.Wei())
}

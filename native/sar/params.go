package sar

import "math/big"

const moduleName = "sar"

// PoolZeroID is the designated compounding destination pool. It is seeded at
// engine initialisation and can never be retyped.
const PoolZeroID uint64 = 0

var (
	// Precision scales both reward summations so that fractional
	// reward-per-value quotients survive integer arithmetic. Divisions by
	// Precision happen last and truncate.
	Precision = new(big.Int).Lsh(big.NewInt(1), 128)

	// MaxStakedAmount bounds any single pool's total staked balance. The
	// bound keeps every downstream product (timestamp times balance times
	// Precision) inside the widths the summation formulas assume.
	MaxStakedAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 104), big.NewInt(1))
)

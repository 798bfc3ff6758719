package common

import "fmt"

// SpendRecord represents one consumed transaction output. A record is
// emitted the moment the output is spent, one line per input.
//
// NOTE FeeRate belongs to the spending transaction, not the individual
// input; the same value is repeated on every record of a multi-input
// transaction because the dump schema is per-input.
type SpendRecord struct {
	Height  uint32 // block height of the spend
	CoinAge uint32 // blocks between creation and spend
	FeeRate uint64 // satoshi per byte of the spending tx
	Value   uint64 // value of the consumed output in satoshi
}

// String formats the record the way it appears in the dump file,
// without the trailing line break.
func (r SpendRecord) String() string {
	return fmt.Sprintf("%d;%d;%d;%d", r.Height, r.CoinAge, r.FeeRate, r.Value)
}

// Totals holds the running counters accumulated over a dump run.
type Totals struct {
	Blocks   uint64
	TxCount  uint64
	InCount  uint64
	OutCount uint64
}

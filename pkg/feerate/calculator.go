package feerate

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/renlord/bitcoin-txodump/pkg/utxo"
)

// LookupSet is the read side of the UTXO set needed for fee computation.
type LookupSet interface {
	Lookup(op wire.OutPoint) (utxo.Entry, bool)
}

// Calculate returns the fee rate of tx in satoshi per byte, using
// truncating integer division.
//
// The fee is the sum of the values of the referenced prior outputs minus
// the sum of the tx's own output values. Inputs whose outpoint is unknown
// to the set contribute nothing (pruned history), which can leave the
// input sum short of the output sum; the fee is clamped at zero in that
// case rather than underflowing.
func Calculate(tx *wire.MsgTx, set LookupSet) uint64 {
	inputSum := uint64(0)
	for _, input := range tx.TxIn {
		if input.PreviousOutPoint.Index == wire.MaxPrevOutIndex {
			// coinbase, references no prior output
			continue
		}

		if entry, ok := set.Lookup(input.PreviousOutPoint); ok {
			inputSum += entry.Value
		}
	}

	outputSum := uint64(0)
	for _, output := range tx.TxOut {
		outputSum += uint64(output.Value)
	}

	if inputSum <= outputSum {
		return 0
	}

	fee := inputSum - outputSum
	return fee / uint64(tx.SerializeSize())
}

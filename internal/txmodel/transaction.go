// Package txmodel defines the wire/ledger transaction types and their
// structural validation and id derivation.
package txmodel

import (
	"fmt"
	"strconv"

	"github.com/duskline/duskchain/internal/cryptoutil"
	"github.com/duskline/duskchain/internal/errs"
)

// CoinbaseAmount is the fixed reward every coinbase transaction mints.
const CoinbaseAmount = 50

// TxIn references a previous output by (TxOutId, TxOutIndex) and
// carries the DER signature proving the spender owns it. Coinbase
// inputs carry an empty Signature and TxOutId.
type TxIn struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Signature  string `json:"signature"`
}

// TxOut pays amount tokens to address.
type TxOut struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Transaction is a set of inputs spending prior outputs into a new set
// of outputs. Id is derived from TxIns/TxOuts only — signatures never
// feed back into the id they sign over.
type Transaction struct {
	ID      string  `json:"id"`
	TxIns   []TxIn  `json:"txIns"`
	TxOuts  []TxOut `json:"txOuts"`
}

// UTxO is a live, unspent output recorded in a UTXO set.
type UTxO struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Address    string `json:"address"`
	Amount     uint64 `json:"amount"`
}

// ComputeID derives the transaction id per spec §3: sha256 over the
// concatenation of each input's "${txOutId}${txOutIndex}" followed by
// each output's "${address}${amount}".
func ComputeID(txIns []TxIn, txOuts []TxOut) string {
	var in string
	for _, i := range txIns {
		in += i.TxOutID + strconv.FormatUint(uint64(i.TxOutIndex), 10)
	}
	var out string
	for _, o := range txOuts {
		out += o.Address + strconv.FormatUint(o.Amount, 10)
	}
	return cryptoutil.Sha256HexString(in + out)
}

// WithComputedID returns a copy of tx with Id set from its inputs/outputs.
func WithComputedID(tx Transaction) Transaction {
	tx.ID = ComputeID(tx.TxIns, tx.TxOuts)
	return tx
}

// ValidateStructure rejects malformed transactions: missing fields,
// wrong scalar kinds (zero-value guards double as "wrong kind" checks
// for a dynamically-decoded wire payload), and addresses that fail the
// address predicate.
func ValidateStructure(tx Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is empty", errs.ErrMalformedInput)
	}
	if len(tx.TxOuts) == 0 {
		return fmt.Errorf("%w: transaction has no outputs", errs.ErrMalformedInput)
	}
	for _, out := range tx.TxOuts {
		if !cryptoutil.IsValidAddress(out.Address) {
			return fmt.Errorf("%w: invalid output address %q", errs.ErrMalformedInput, out.Address)
		}
		if out.Amount == 0 {
			return fmt.Errorf("%w: output amount must be positive", errs.ErrMalformedInput)
		}
	}
	for _, in := range tx.TxIns {
		if in.TxOutIndex > 0 && in.TxOutID == "" {
			return fmt.Errorf("%w: input missing txOutId", errs.ErrMalformedInput)
		}
	}
	return nil
}

// IsCoinbase reports whether tx has the synthetic coinbase input shape
// (a single input with an empty TxOutId). It does not validate the
// coinbase rules fully — see the utxo package for that.
func IsCoinbase(tx Transaction) bool {
	return len(tx.TxIns) == 1 && tx.TxIns[0].TxOutID == ""
}

// OutputSum sums transaction output amounts.
func OutputSum(txOuts []TxOut) uint64 {
	var sum uint64
	for _, o := range txOuts {
		sum += o.Amount
	}
	return sum
}

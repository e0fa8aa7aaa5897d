// Package utxo implements the live unspent-output set and the
// block-level / per-transaction semantic validation that transitions it.
package utxo

import (
	"fmt"

	"github.com/duskline/duskchain/internal/cryptoutil"
	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/txmodel"
)

// Key identifies a UTxO by the pair the spec treats as its identity.
type Key struct {
	TxOutID    string
	TxOutIndex uint32
}

// Set is the live collection of unspent outputs, keyed by (TxOutId,
// TxOutIndex). It is not concurrency-safe on its own — callers
// (the Node's single command goroutine, or tests) serialize access.
type Set struct {
	entries map[Key]txmodel.UTxO
}

// New returns an empty UTXO set.
func New() *Set {
	return &Set{entries: make(map[Key]txmodel.UTxO)}
}

// Get looks up a UTxO by identity.
func (s *Set) Get(txOutID string, txOutIndex uint32) (txmodel.UTxO, bool) {
	u, ok := s.entries[Key{txOutID, txOutIndex}]
	return u, ok
}

// Put inserts or overwrites a UTxO.
func (s *Set) Put(u txmodel.UTxO) {
	s.entries[Key{u.TxOutID, u.TxOutIndex}] = u
}

// Delete removes a UTxO by identity, no-op if absent.
func (s *Set) Delete(txOutID string, txOutIndex uint32) {
	delete(s.entries, Key{txOutID, txOutIndex})
}

// All returns a snapshot slice of every live UTxO.
func (s *Set) All() []txmodel.UTxO {
	out := make([]txmodel.UTxO, 0, len(s.entries))
	for _, u := range s.entries {
		out = append(out, u)
	}
	return out
}

// ForAddress returns a snapshot slice of UTxOs owned by address.
func (s *Set) ForAddress(address string) []txmodel.UTxO {
	out := make([]txmodel.UTxO, 0)
	for _, u := range s.entries {
		if u.Address == address {
			out = append(out, u)
		}
	}
	return out
}

// Clone returns an independent deep copy of the set.
func (s *Set) Clone() *Set {
	c := New()
	for k, v := range s.entries {
		c.entries[k] = v
	}
	return c
}

// ValidateCoinbase checks the coinbase shape rules from spec §4.C: one
// synthetic input at blockIndex, one output of CoinbaseAmount, and a
// correctly derived id.
func ValidateCoinbase(tx txmodel.Transaction, blockIndex uint64) error {
	if len(tx.TxIns) != 1 {
		return fmt.Errorf("%w: coinbase must have exactly one input", errs.ErrBadCoinbase)
	}
	in := tx.TxIns[0]
	if in.TxOutID != "" || in.Signature != "" {
		return fmt.Errorf("%w: coinbase input must be synthetic", errs.ErrBadCoinbase)
	}
	if uint64(in.TxOutIndex) != blockIndex {
		return fmt.Errorf("%w: coinbase txOutIndex %d does not match block index %d", errs.ErrBadCoinbase, in.TxOutIndex, blockIndex)
	}
	if len(tx.TxOuts) != 1 {
		return fmt.Errorf("%w: coinbase must have exactly one output", errs.ErrBadCoinbase)
	}
	if tx.TxOuts[0].Amount != txmodel.CoinbaseAmount {
		return fmt.Errorf("%w: coinbase amount must be %d", errs.ErrBadCoinbase, txmodel.CoinbaseAmount)
	}
	if !cryptoutil.IsValidAddress(tx.TxOuts[0].Address) {
		return fmt.Errorf("%w: invalid coinbase address", errs.ErrBadCoinbase)
	}
	if tx.ID != txmodel.ComputeID(tx.TxIns, tx.TxOuts) {
		return fmt.Errorf("%w: coinbase id does not match derivation", errs.ErrBadCoinbase)
	}
	return nil
}

// ValidateTransaction checks a non-coinbase transaction against the
// live set: structural validity, id derivation, every input references
// a live UTxO with a verifying signature, and input/output conservation.
func ValidateTransaction(tx txmodel.Transaction, set *Set) error {
	if err := txmodel.ValidateStructure(tx); err != nil {
		return err
	}
	if tx.ID != txmodel.ComputeID(tx.TxIns, tx.TxOuts) {
		return fmt.Errorf("%w: transaction id does not match derivation", errs.ErrMalformedInput)
	}
	if len(tx.TxIns) == 0 {
		return fmt.Errorf("%w: transaction has no inputs", errs.ErrMalformedInput)
	}
	var inSum uint64
	for _, in := range tx.TxIns {
		u, ok := set.Get(in.TxOutID, in.TxOutIndex)
		if !ok {
			return fmt.Errorf("%w: %s:%d", errs.ErrUnknownUTxO, in.TxOutID, in.TxOutIndex)
		}
		if !cryptoutil.Verify(u.Address, tx.ID, in.Signature) {
			return fmt.Errorf("%w: input %s:%d", errs.ErrInvalidSignature, in.TxOutID, in.TxOutIndex)
		}
		inSum += u.Amount
	}
	outSum := txmodel.OutputSum(tx.TxOuts)
	if inSum != outSum {
		return fmt.Errorf("%w: inputs %d outputs %d", errs.ErrConservationViolation, inSum, outSum)
	}
	return nil
}

// hasDuplicateInputs reports whether any two TxIns across txs collide
// on (TxOutId, TxOutIndex).
func hasDuplicateInputs(txs []txmodel.Transaction) bool {
	seen := make(map[Key]struct{})
	for _, tx := range txs {
		for _, in := range tx.TxIns {
			k := Key{in.TxOutID, in.TxOutIndex}
			if _, ok := seen[k]; ok {
				return true
			}
			seen[k] = struct{}{}
		}
	}
	return false
}

// ProcessTransactions validates txs as a full block (coinbase at
// position 0, no duplicate inputs anywhere in the block, every other
// tx individually valid) and, on success, returns the UTxO set that
// results from applying them. On failure it returns a nil set and the
// error; the input set is never modified — validation never partially
// mutates the live set.
func ProcessTransactions(txs []txmodel.Transaction, set *Set, blockIndex uint64) (*Set, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: block has no transactions", errs.ErrBadBlockStructure)
	}
	if err := ValidateCoinbase(txs[0], blockIndex); err != nil {
		return nil, err
	}
	if hasDuplicateInputs(txs) {
		return nil, errs.ErrDoubleSpendInBlock
	}
	for _, tx := range txs[1:] {
		if err := ValidateTransaction(tx, set); err != nil {
			return nil, err
		}
	}

	next := set.Clone()
	for _, tx := range txs {
		for _, in := range tx.TxIns {
			next.Delete(in.TxOutID, in.TxOutIndex)
		}
		for idx, out := range tx.TxOuts {
			next.Put(txmodel.UTxO{
				TxOutID:    tx.ID,
				TxOutIndex: uint32(idx),
				Address:    out.Address,
				Amount:     out.Amount,
			})
		}
	}
	return next, nil
}

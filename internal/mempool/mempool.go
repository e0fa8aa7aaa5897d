// Package mempool holds transactions awaiting inclusion in a block and
// enforces admission rules against the live UTXO set and in-flight
// pool inputs.
package mempool

import (
	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/txmodel"
	"github.com/duskline/duskchain/internal/utxo"
)

// Pool is an insertion-ordered sequence of pending transactions.
// Ordering is not a consensus concern — a miner treats it as a set.
type Pool struct {
	txs []txmodel.Transaction
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// All returns a snapshot slice of pending transactions.
func (p *Pool) All() []txmodel.Transaction {
	out := make([]txmodel.Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

// Contains reports whether a transaction with the given id is pooled.
func (p *Pool) Contains(id string) (txmodel.Transaction, bool) {
	for _, tx := range p.txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return txmodel.Transaction{}, false
}

// collidesWithPool reports whether any input of tx is already consumed
// by a transaction already in the pool.
func (p *Pool) collidesWithPool(tx txmodel.Transaction) bool {
	for _, pooled := range p.txs {
		for _, a := range pooled.TxIns {
			for _, b := range tx.TxIns {
				if a.TxOutID == b.TxOutID && a.TxOutIndex == b.TxOutIndex {
					return true
				}
			}
		}
	}
	return false
}

// Add admits tx iff it validates against set and does not collide with
// any transaction already pooled.
func (p *Pool) Add(tx txmodel.Transaction, set *utxo.Set) error {
	if err := utxo.ValidateTransaction(tx, set); err != nil {
		return err
	}
	if p.collidesWithPool(tx) {
		return errs.ErrDoubleSpendInPool
	}
	p.txs = append(p.txs, tx)
	return nil
}

// Update drops any pooled transaction that has an input no longer
// present in newSet — called whenever a block is appended or the
// chain is replaced.
func (p *Pool) Update(newSet *utxo.Set) {
	kept := p.txs[:0:0]
	for _, tx := range p.txs {
		live := true
		for _, in := range tx.TxIns {
			if _, ok := newSet.Get(in.TxOutID, in.TxOutIndex); !ok {
				live = false
				break
			}
		}
		if live {
			kept = append(kept, tx)
		}
	}
	p.txs = kept
}

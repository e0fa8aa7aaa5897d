// Package txbuilder implements the wallet-facing transaction
// construction spec §4.E: select spendable UTXOs, build the spend, and
// sign every input.
package txbuilder

import (
	"fmt"
	"sort"

	"github.com/duskline/duskchain/internal/cryptoutil"
	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/mempool"
	"github.com/duskline/duskchain/internal/txmodel"
	"github.com/duskline/duskchain/internal/utxo"
)

// spendableUTxOs returns the own-address UTxOs that are not already
// referenced by an input of any pooled transaction, sorted for
// deterministic greedy selection.
func spendableUTxOs(own string, set *utxo.Set, pool *mempool.Pool) []txmodel.UTxO {
	reserved := make(map[utxo.Key]struct{})
	for _, tx := range pool.All() {
		for _, in := range tx.TxIns {
			reserved[utxo.Key{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex}] = struct{}{}
		}
	}

	all := set.ForAddress(own)
	out := make([]txmodel.UTxO, 0, len(all))
	for _, u := range all {
		if _, blocked := reserved[utxo.Key{TxOutID: u.TxOutID, TxOutIndex: u.TxOutIndex}]; !blocked {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TxOutID != out[j].TxOutID {
			return out[i].TxOutID < out[j].TxOutID
		}
		return out[i].TxOutIndex < out[j].TxOutIndex
	})
	return out
}

// CreateTransaction builds and signs a transaction spending amount to
// receiver from privKey's own UTXOs, failing with ErrInsufficientFunds
// if the owned, pool-unreserved UTXOs cannot cover amount.
func CreateTransaction(receiver string, amount uint64, privKey string, pool *mempool.Pool, set *utxo.Set) (txmodel.Transaction, error) {
	own, err := cryptoutil.PubFromPriv(privKey)
	if err != nil {
		return txmodel.Transaction{}, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if !cryptoutil.IsValidAddress(receiver) {
		return txmodel.Transaction{}, fmt.Errorf("%w: invalid receiver address", errs.ErrMalformedInput)
	}
	if amount == 0 {
		return txmodel.Transaction{}, fmt.Errorf("%w: amount must be positive", errs.ErrMalformedInput)
	}

	candidates := spendableUTxOs(own, set, pool)

	var acc uint64
	var chosen []txmodel.UTxO
	for _, u := range candidates {
		chosen = append(chosen, u)
		acc += u.Amount
		if acc >= amount {
			break
		}
	}
	if acc < amount {
		return txmodel.Transaction{}, errs.ErrInsufficientFunds
	}

	txIns := make([]txmodel.TxIn, len(chosen))
	for i, u := range chosen {
		txIns[i] = txmodel.TxIn{TxOutID: u.TxOutID, TxOutIndex: u.TxOutIndex}
	}

	txOuts := []txmodel.TxOut{{Address: receiver, Amount: amount}}
	if change := acc - amount; change > 0 {
		txOuts = append(txOuts, txmodel.TxOut{Address: own, Amount: change})
	}

	tx := txmodel.Transaction{TxIns: txIns, TxOuts: txOuts}
	tx.ID = txmodel.ComputeID(tx.TxIns, tx.TxOuts)

	for i := range tx.TxIns {
		sig, err := cryptoutil.Sign(privKey, tx.ID)
		if err != nil {
			return txmodel.Transaction{}, fmt.Errorf("sign input %d: %w", i, err)
		}
		tx.TxIns[i].Signature = sig
	}
	return tx, nil
}

package txbuilder

import (
	"errors"
	"testing"

	"github.com/duskline/duskchain/internal/cryptoutil"
	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/mempool"
	"github.com/duskline/duskchain/internal/txmodel"
	"github.com/duskline/duskchain/internal/utxo"
)

func TestCreateTransactionChangeOutput(t *testing.T) {
	priv, _ := cryptoutil.GenPrivKey()
	own, _ := cryptoutil.PubFromPriv(priv)
	receiverPriv, _ := cryptoutil.GenPrivKey()
	receiver, _ := cryptoutil.PubFromPriv(receiverPriv)

	set := utxo.New()
	set.Put(txmodel.UTxO{TxOutID: "a", TxOutIndex: 0, Address: own, Amount: 50})

	pool := mempool.New()
	tx, err := CreateTransaction(receiver, 30, priv, pool, set)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if len(tx.TxOuts) != 2 {
		t.Fatalf("expected 2 outputs (payment + change), got %d", len(tx.TxOuts))
	}
	if tx.TxOuts[0].Address != receiver || tx.TxOuts[0].Amount != 30 {
		t.Errorf("payment output = %+v, want {%s 30}", tx.TxOuts[0], receiver)
	}
	if tx.TxOuts[1].Address != own || tx.TxOuts[1].Amount != 20 {
		t.Errorf("change output = %+v, want {%s 20}", tx.TxOuts[1], own)
	}
	if len(tx.TxIns) != 1 || tx.TxIns[0].Signature == "" {
		t.Fatalf("expected one signed input, got %+v", tx.TxIns)
	}
	if !cryptoutil.Verify(own, tx.ID, tx.TxIns[0].Signature) {
		t.Fatalf("input signature does not verify")
	}
}

func TestCreateTransactionExactAmountNoChange(t *testing.T) {
	priv, _ := cryptoutil.GenPrivKey()
	own, _ := cryptoutil.PubFromPriv(priv)
	receiverPriv, _ := cryptoutil.GenPrivKey()
	receiver, _ := cryptoutil.PubFromPriv(receiverPriv)

	set := utxo.New()
	set.Put(txmodel.UTxO{TxOutID: "a", TxOutIndex: 0, Address: own, Amount: 30})

	tx, err := CreateTransaction(receiver, 30, priv, mempool.New(), set)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if len(tx.TxOuts) != 1 {
		t.Fatalf("expected no change output when amount is exact, got %d outputs", len(tx.TxOuts))
	}
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	priv, _ := cryptoutil.GenPrivKey()
	own, _ := cryptoutil.PubFromPriv(priv)
	receiverPriv, _ := cryptoutil.GenPrivKey()
	receiver, _ := cryptoutil.PubFromPriv(receiverPriv)

	set := utxo.New()
	set.Put(txmodel.UTxO{TxOutID: "a", TxOutIndex: 0, Address: own, Amount: 10})

	_, err := CreateTransaction(receiver, 30, priv, mempool.New(), set)
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("CreateTransaction() = %v, want ErrInsufficientFunds", err)
	}
}

func TestCreateTransactionExcludesPoolReservedUTxOs(t *testing.T) {
	priv, _ := cryptoutil.GenPrivKey()
	own, _ := cryptoutil.PubFromPriv(priv)
	receiverPriv, _ := cryptoutil.GenPrivKey()
	receiver, _ := cryptoutil.PubFromPriv(receiverPriv)

	set := utxo.New()
	set.Put(txmodel.UTxO{TxOutID: "a", TxOutIndex: 0, Address: own, Amount: 30})
	set.Put(txmodel.UTxO{TxOutID: "b", TxOutIndex: 0, Address: own, Amount: 30})

	pool := mempool.New()
	reserving := txmodel.WithComputedID(txmodel.Transaction{
		TxIns:  []txmodel.TxIn{{TxOutID: "a", TxOutIndex: 0}},
		TxOuts: []txmodel.TxOut{{Address: receiver, Amount: 30}},
	})
	sig, _ := cryptoutil.Sign(priv, reserving.ID)
	reserving.TxIns[0].Signature = sig
	if err := pool.Add(reserving, set); err != nil {
		t.Fatalf("pool.Add: %v", err)
	}

	// Only "b" remains spendable; asking for more than it holds must fail
	// even though the full set nominally has enough total balance.
	if _, err := CreateTransaction(receiver, 40, priv, pool, set); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("CreateTransaction() = %v, want ErrInsufficientFunds", err)
	}

	tx, err := CreateTransaction(receiver, 30, priv, pool, set)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.TxIns[0].TxOutID != "b" {
		t.Fatalf("expected the unreserved UTxO b:0 to be selected, got %s", tx.TxIns[0].TxOutID)
	}
}

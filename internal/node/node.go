// Package node wires the transaction/UTXO engine, chain engine,
// mempool and gossip hub into the single aggregate spec §9 calls for:
// no global mutable state, one serialization point for every command
// and every gossip event, per spec §5's concurrency model generalized
// from a single-threaded event loop onto a Go command-channel actor.
package node

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/duskline/duskchain/internal/chain"
	"github.com/duskline/duskchain/internal/errs"
	"github.com/duskline/duskchain/internal/gossip"
	"github.com/duskline/duskchain/internal/mempool"
	"github.com/duskline/duskchain/internal/txbuilder"
	"github.com/duskline/duskchain/internal/txmodel"
	"github.com/duskline/duskchain/internal/utxo"
	"github.com/duskline/duskchain/internal/wallet"
)

// Node is the orchestrator of spec §4.H: it owns the chain, the live
// UTXO set, the mempool and the peer hub, and is the only thing that
// mutates any of them. Every command and every gossip callback runs as
// a closure submitted to the single loop goroutine started by Run.
type Node struct {
	chain   *chain.Chain
	utxoSet *utxo.Set
	pool    *mempool.Pool
	wallet  *wallet.Wallet
	hub     *gossip.Hub
	log     *slog.Logger

	cmds chan func()
	stop chan struct{}

	mining     bool
	mineCancel chan struct{}
}

// New constructs a Node seeded with a fresh genesis chain and UTXO set.
func New(w *wallet.Wallet, log *slog.Logger) *Node {
	ch := chain.NewChain()
	set := utxo.New()
	genesis := ch.Latest()
	for idx, out := range genesis.Transactions[0].TxOuts {
		set.Put(txmodel.UTxO{
			TxOutID:    genesis.Transactions[0].ID,
			TxOutIndex: uint32(idx),
			Address:    out.Address,
			Amount:     out.Amount,
		})
	}
	return &Node{
		chain:   ch,
		utxoSet: set,
		pool:    mempool.New(),
		wallet:  w,
		log:     log,
		cmds:    make(chan func(), 64),
		stop:    make(chan struct{}),
	}
}

// SetHub binds the peer gossip hub the node broadcasts through. Called
// once after NewHub(node, log), breaking the chain<->gossip
// construction cycle per spec §9.
func (n *Node) SetHub(h *gossip.Hub) { n.hub = h }

// Run is the single serializing loop: every command closure submitted
// via do runs here, one at a time, until Stop is called.
func (n *Node) Run() {
	for {
		select {
		case cmd := <-n.cmds:
			cmd()
		case <-n.stop:
			return
		}
	}
}

// do submits fn to the loop goroutine and blocks until it has run.
func (n *Node) do(fn func()) {
	done := make(chan struct{})
	n.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// --- gossip.Dispatcher ---

// LatestBlock returns the current chain tip.
func (n *Node) LatestBlock() chain.Block {
	var b chain.Block
	n.do(func() { b = n.chain.Latest() })
	return b
}

// FullChain returns every block on the local chain.
func (n *Node) FullChain() []chain.Block {
	var blocks []chain.Block
	n.do(func() { blocks = n.chain.Blocks() })
	return blocks
}

// Pool returns every pending transaction.
func (n *Node) Pool() []txmodel.Transaction {
	var txs []txmodel.Transaction
	n.do(func() { txs = n.pool.All() })
	return txs
}

// ReceiveBlockchain implements spec §4.G's reconciliation subroutine
// for an inbound RESPONSE_BLOCKCHAIN frame.
func (n *Node) ReceiveBlockchain(from *gossip.Peer, blocks []chain.Block) {
	if len(blocks) == 0 {
		return
	}
	received := blocks[len(blocks)-1]

	var queryAll bool
	n.do(func() {
		local := n.chain.Latest()
		switch {
		case received.Index <= local.Index:
			return
		case local.Hash == received.PreviousHash:
			if err := n.appendBlockLocked(received); err != nil {
				n.log.Warn("rejected peer block", "peer", from.ID(), "error", err)
				return
			}
			n.broadcast(mustBlocksEnvelope([]chain.Block{n.chain.Latest()}))
		case len(blocks) == 1:
			queryAll = true
		default:
			if err := n.replaceChainLocked(blocks); err != nil {
				n.log.Warn("rejected candidate chain", "peer", from.ID(), "error", err)
				return
			}
			n.broadcast(mustBlocksEnvelope([]chain.Block{n.chain.Latest()}))
		}
	})
	if queryAll {
		n.broadcast(gossip.NewQueryAll())
	}
}

// ReceivePoolTx implements spec §4.G's RESPONSE_TRANSACTION_POOL
// handler: admit every tx that validates, report whether any admitted
// (the caller rebroadcasts the pool when it did).
func (n *Node) ReceivePoolTx(from *gossip.Peer, txs []txmodel.Transaction) bool {
	var admitted bool
	n.do(func() {
		for _, tx := range txs {
			if err := n.pool.Add(tx, n.utxoSet); err != nil {
				n.log.Warn("pool admission failed", "peer", from.ID(), "tx", tx.ID, "error", err)
				continue
			}
			admitted = true
		}
	})
	return admitted
}

func mustBlocksEnvelope(blocks []chain.Block) gossip.Envelope {
	env, err := gossip.NewResponseBlockchain(blocks)
	if err != nil {
		// blocks are always JSON-marshalable; this would only fail on
		// an encoding bug, not bad input.
		panic(err)
	}
	return env
}

// broadcast fans out env to every connected peer. Called both from
// inside do() closures (preserving enqueue order relative to the state
// change that triggered it) and from command methods after do() has
// returned.
func (n *Node) broadcast(env gossip.Envelope) {
	if n.hub == nil {
		return
	}
	n.hub.Broadcast(env)
}

// cancelMiningLocked aborts an in-flight Mine call because the chain
// tip it was mining against is no longer current. Must run inside a
// do() closure.
func (n *Node) cancelMiningLocked() {
	if n.mining && n.mineCancel != nil {
		close(n.mineCancel)
		n.mineCancel = nil
	}
}

// appendBlockLocked validates and appends b to the chain, updating the
// UTXO set and pruning the pool. Must run inside a do() closure.
func (n *Node) appendBlockLocked(b chain.Block) error {
	if err := chain.ValidateHeader(b, n.chain.Blocks(), nowMillis()); err != nil {
		return err
	}
	newSet, err := utxo.ProcessTransactions(b.Transactions, n.utxoSet, b.Index)
	if err != nil {
		return err
	}
	n.cancelMiningLocked()
	n.chain.Append(b)
	n.utxoSet = newSet
	n.pool.Update(n.utxoSet)
	return nil
}

// replaceChainLocked validates candidate from genesis and, if it is
// strictly heavier and strictly longer, swaps it in. Must run inside a
// do() closure.
func (n *Node) replaceChainLocked(candidate []chain.Block) error {
	if len(candidate) == 0 || !reflect.DeepEqual(candidate[0], chain.Genesis()) {
		return fmt.Errorf("%w: candidate genesis mismatch", errs.ErrBadBlockStructure)
	}
	fresh := utxo.New()
	for idx, out := range candidate[0].Transactions[0].TxOuts {
		fresh.Put(txmodel.UTxO{
			TxOutID:    candidate[0].Transactions[0].ID,
			TxOutIndex: uint32(idx),
			Address:    out.Address,
			Amount:     out.Amount,
		})
	}
	for i := 1; i < len(candidate); i++ {
		if err := chain.ValidateHeader(candidate[i], candidate[:i], nowMillis()); err != nil {
			return err
		}
		next, err := utxo.ProcessTransactions(candidate[i].Transactions, fresh, candidate[i].Index)
		if err != nil {
			return err
		}
		fresh = next
	}

	newChain := chain.FromBlocks(candidate)
	if !(newChain.Weight() > n.chain.Weight() && newChain.Len() > n.chain.Len()) {
		return errs.ErrWeakerChain
	}

	n.cancelMiningLocked()
	n.chain = newChain
	n.utxoSet = fresh
	n.pool.Update(n.utxoSet)
	return nil
}

// --- command surface (spec §6) ---

// GetChain returns every block on the local chain.
func (n *Node) GetChain() []chain.Block { return n.FullChain() }

// GetBlockByHash returns the block with the given hash, if any.
func (n *Node) GetBlockByHash(hash string) (chain.Block, bool) {
	var b chain.Block
	var ok bool
	n.do(func() { b, ok = n.chain.ByHash(hash) })
	return b, ok
}

// GetTxByID searches the chain, then the pool, for a transaction id.
func (n *Node) GetTxByID(id string) (txmodel.Transaction, bool) {
	var tx txmodel.Transaction
	var ok bool
	n.do(func() {
		for _, b := range n.chain.Blocks() {
			for _, t := range b.Transactions {
				if t.ID == id {
					tx, ok = t, true
					return
				}
			}
		}
		tx, ok = n.pool.Contains(id)
	})
	return tx, ok
}

// GetUnspent returns every live UTxO.
func (n *Node) GetUnspent() []txmodel.UTxO {
	var out []txmodel.UTxO
	n.do(func() { out = n.utxoSet.All() })
	return out
}

// GetMyUnspent returns the node's own live UTxOs.
func (n *Node) GetMyUnspent() []txmodel.UTxO {
	var out []txmodel.UTxO
	n.do(func() { out = n.utxoSet.ForAddress(n.wallet.Address()) })
	return out
}

// GetBalance sums the node's own live UTxOs.
func (n *Node) GetBalance() uint64 {
	var total uint64
	n.do(func() {
		for _, u := range n.utxoSet.ForAddress(n.wallet.Address()) {
			total += u.Amount
		}
	})
	return total
}

// GetAddress returns the node's own address.
func (n *Node) GetAddress() string { return n.wallet.Address() }

// GetPool returns every pending transaction.
func (n *Node) GetPool() []txmodel.Transaction { return n.Pool() }

// GetPeers returns the "host:port" label of every connected peer.
func (n *Node) GetPeers() []string {
	if n.hub == nil {
		return nil
	}
	return n.hub.Addresses()
}

// AddPeer dials addr and adopts it as a peer session.
func (n *Node) AddPeer(addr string) error {
	if n.hub == nil {
		return fmt.Errorf("%w: no peer hub configured", errs.ErrPeerTransport)
	}
	if err := n.hub.Dial(addr); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPeerTransport, err)
	}
	return nil
}

func coinbaseTx(address string, blockIndex uint64) txmodel.Transaction {
	tx := txmodel.Transaction{
		TxIns:  []txmodel.TxIn{{TxOutID: "", TxOutIndex: uint32(blockIndex), Signature: ""}},
		TxOuts: []txmodel.TxOut{{Address: address, Amount: txmodel.CoinbaseAmount}},
	}
	tx.ID = txmodel.ComputeID(tx.TxIns, tx.TxOuts)
	return tx
}

type miningPrep struct {
	index      uint64
	prevHash   string
	timestamp  int64
	difficulty uint32
	txs        []txmodel.Transaction
	cancel     chan struct{}
}

// prepareMining snapshots everything FindBlock needs and marks the
// node as having a mining search in flight, so a concurrent chain
// change can cancel it. extra, if non-nil, is mined instead of the
// current pool (mine_raw); otherwise the pool plus a fresh coinbase is
// used (mine, mine_tx).
func (n *Node) prepareMining(extra []txmodel.Transaction) (miningPrep, error) {
	var p miningPrep
	var err error
	n.do(func() {
		if n.mining {
			err = errs.ErrAlreadyMining
			return
		}
		tip := n.chain.Latest()
		p.index = tip.Index + 1
		p.prevHash = tip.Hash
		p.difficulty = n.chain.NextDifficulty()
		p.timestamp = nowMillis()
		coinbase := coinbaseTx(n.wallet.Address(), p.index)
		if extra != nil {
			p.txs = append([]txmodel.Transaction{coinbase}, extra...)
		} else {
			p.txs = append([]txmodel.Transaction{coinbase}, n.pool.All()...)
		}
		p.cancel = make(chan struct{})
		n.mineCancel = p.cancel
		n.mining = true
	})
	return p, err
}

func (n *Node) finishMining(block chain.Block, found bool) (chain.Block, error) {
	var result chain.Block
	var err error
	n.do(func() {
		n.mining = false
		n.mineCancel = nil
		if !found {
			err = errs.ErrMiningCancelled
			return
		}
		if aerr := n.appendBlockLocked(block); aerr != nil {
			err = aerr
			return
		}
		result = block
		n.broadcast(mustBlocksEnvelope([]chain.Block{n.chain.Latest()}))
	})
	if err != nil {
		return chain.Block{}, err
	}
	return result, nil
}

// Mine runs the full PoW search for a block over the current pool plus
// a fresh coinbase, appends it on success, and broadcasts the new tip.
// The search itself runs on the calling goroutine (e.g. an HTTP
// handler's), not the node's command loop, so it never blocks other
// commands or gossip traffic — only appendBlockLocked, run through
// do(), mutates shared state, matching spec §9's worker-with-
// cancellation redesign (4.F′).
func (n *Node) Mine() (chain.Block, error) {
	p, err := n.prepareMining(nil)
	if err != nil {
		return chain.Block{}, err
	}
	block, ok := chain.FindBlock(p.index, p.prevHash, p.timestamp, p.txs, p.difficulty, p.cancel)
	return n.finishMining(block, ok)
}

// MineRaw mines a block containing exactly the given transactions
// (plus a fresh coinbase), bypassing the pool.
func (n *Node) MineRaw(txs []txmodel.Transaction) (chain.Block, error) {
	if len(txs) == 0 {
		return chain.Block{}, fmt.Errorf("%w: no transactions supplied", errs.ErrMalformedInput)
	}
	p, err := n.prepareMining(txs)
	if err != nil {
		return chain.Block{}, err
	}
	block, ok := chain.FindBlock(p.index, p.prevHash, p.timestamp, p.txs, p.difficulty, p.cancel)
	return n.finishMining(block, ok)
}

// SendTx builds, signs and pools a spend to address for amount,
// broadcasting the updated pool to peers.
func (n *Node) SendTx(address string, amount uint64) (txmodel.Transaction, error) {
	var tx txmodel.Transaction
	var err error
	n.do(func() {
		tx, err = txbuilder.CreateTransaction(address, amount, n.wallet.PrivateKey(), n.pool, n.utxoSet)
		if err != nil {
			return
		}
		if aerr := n.pool.Add(tx, n.utxoSet); aerr != nil {
			err = aerr
			return
		}
	})
	if err != nil {
		return txmodel.Transaction{}, err
	}
	env, envErr := gossip.NewResponseTransactionPool(n.Pool())
	if envErr == nil {
		n.broadcast(env)
	}
	return tx, nil
}

// Stop terminates the process shortly after returning, giving the
// caller (the HTTP handler answering "stop") time to write its response.
func (n *Node) Stop() {
	close(n.stop)
	go func() {
		time.Sleep(200 * time.Millisecond)
		os.Exit(0)
	}()
}

package gossip

import (
	"errors"

	"github.com/gorilla/websocket"

	"github.com/duskline/duskchain/internal/chain"
)

var errFullOutbox = errors.New("gossip: peer outbound queue is full")

// Peer is one persistent, bidirectional framed session with another
// node. Its lifecycle is Opening (construction, in Hub.adopt) ->
// Active (once the read/write pumps are running) -> Closed (on
// transport error or explicit close), matching spec §4.G's state
// machine.
type Peer struct {
	id       string
	label    string
	conn     *websocket.Conn
	outbound chan Envelope
	hub      *Hub
}

// ID returns the peer session's identifier.
func (p *Peer) ID() string { return p.id }

// Label returns the peer's address label ("host:port" for outbound
// dials, the observed remote addr for inbound connections).
func (p *Peer) Label() string { return p.label }

// Send enqueues env for delivery; it never blocks on network I/O
// itself — the write pump owns the actual conn writes.
func (p *Peer) Send(env Envelope) error {
	select {
	case p.outbound <- env:
		return nil
	default:
		return errFullOutbox
	}
}

func (p *Peer) writePump() {
	defer func() {
		p.conn.Close()
		p.hub.remove(p)
	}()
	for env := range p.outbound {
		if err := p.conn.WriteJSON(env); err != nil {
			p.hub.log.Warn("peer write failed", "peer", p.id, "error", err)
			return
		}
	}
}

// readPump never closes p.outbound: Send() may be called concurrently
// from Broadcast, and sending on a closed channel panics. Both pumps
// instead close the connection and call hub.remove, which is safe to
// call twice (deleting an absent map key is a no-op).
func (p *Peer) readPump() {
	defer func() {
		p.conn.Close()
		p.hub.remove(p)
	}()
	for {
		var env Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return
		}
		p.dispatch(env)
	}
}

func (p *Peer) dispatch(env Envelope) {
	d := p.hub.dispatcher
	switch env.Type {
	case QueryLatest:
		resp, err := NewResponseBlockchain([]chain.Block{d.LatestBlock()})
		if err != nil {
			p.hub.log.Warn("failed to build RESPONSE_BLOCKCHAIN", "peer", p.id, "error", err)
			return
		}
		_ = p.Send(resp)
	case QueryAll:
		resp, err := NewResponseBlockchain(d.FullChain())
		if err != nil {
			p.hub.log.Warn("failed to build RESPONSE_BLOCKCHAIN", "peer", p.id, "error", err)
			return
		}
		_ = p.Send(resp)
	case ResponseBlockchain:
		blocks, err := env.Blocks()
		if err != nil {
			p.hub.log.Warn("malformed RESPONSE_BLOCKCHAIN", "peer", p.id, "error", err)
			return
		}
		d.ReceiveBlockchain(p, blocks)
	case QueryTransactionPool:
		resp, err := NewResponseTransactionPool(d.Pool())
		if err != nil {
			p.hub.log.Warn("failed to build RESPONSE_TRANSACTION_POOL", "peer", p.id, "error", err)
			return
		}
		_ = p.Send(resp)
	case ResponseTransactionPool:
		txs, err := env.Transactions()
		if err != nil {
			p.hub.log.Warn("malformed RESPONSE_TRANSACTION_POOL", "peer", p.id, "error", err)
			return
		}
		if d.ReceivePoolTx(p, txs) {
			resp, err := NewResponseTransactionPool(d.Pool())
			if err == nil {
				p.hub.Broadcast(resp)
			}
		}
	}
}

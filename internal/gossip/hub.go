package gossip

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/duskline/duskchain/internal/chain"
	"github.com/duskline/duskchain/internal/txmodel"
)

// PostHandshakeGrace is the fixed delay before a newly active session
// asks for the remote's pool, giving the remote time to finish its own
// setup — spec §4.G's "~500 ms grace so remote is ready".
const PostHandshakeGrace = 500 * time.Millisecond

// Dispatcher is implemented by the node orchestrator and supplies the
// chain/pool state the gossip layer answers queries with, plus the
// reconciliation hooks spec §4.G's RESPONSE_BLOCKCHAIN and
// RESPONSE_TRANSACTION_POOL handlers invoke.
type Dispatcher interface {
	LatestBlock() chain.Block
	FullChain() []chain.Block
	Pool() []txmodel.Transaction
	ReceiveBlockchain(from *Peer, blocks []chain.Block)
	ReceivePoolTx(from *Peer, txs []txmodel.Transaction) (rebroadcast bool)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns every active peer session and fans outbound broadcasts to
// all of them — a generalization of the teacher's WSManager
// register/unregister/broadcast loop from a one-way UI push hub into a
// two-way, type-dispatching peer gossip hub.
type Hub struct {
	mu         sync.RWMutex
	peers      map[string]*Peer
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewHub constructs a hub bound to dispatcher, which answers queries
// and drives reconciliation for every peer session the hub manages.
func NewHub(dispatcher Dispatcher, log *slog.Logger) *Hub {
	return &Hub{
		peers:      make(map[string]*Peer),
		dispatcher: dispatcher,
		log:        log,
	}
}

// ServeWS upgrades an inbound HTTP request to a websocket peer session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("peer websocket upgrade failed", "error", err)
		return
	}
	h.adopt(conn, r.RemoteAddr)
}

// Dial opens an outbound peer session to addr, e.g. "ws://host:port/ws".
func (h *Hub) Dial(addr string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return err
	}
	label := addr
	if u, perr := url.Parse(addr); perr == nil && u.Host != "" {
		label = u.Host
	}
	h.adopt(conn, label)
	return nil
}

func (h *Hub) adopt(conn *websocket.Conn, label string) {
	p := &Peer{
		id:       uuid.NewString(),
		label:    label,
		conn:     conn,
		outbound: make(chan Envelope, 32),
		hub:      h,
	}
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
	h.log.Info("peer session opened", "peer", p.id, "addr", label)

	go p.writePump()
	go p.readPump()

	// On entering Active: query latest, then after a grace period
	// query the remote's pool — spec §4.G's handshake sequence.
	_ = p.Send(NewQueryLatest())
	go func() {
		time.Sleep(PostHandshakeGrace)
		_ = p.Send(NewQueryTransactionPool())
	}()
}

func (h *Hub) remove(p *Peer) {
	h.mu.Lock()
	delete(h.peers, p.id)
	h.mu.Unlock()
	h.log.Info("peer session closed", "peer", p.id, "addr", p.label)
}

// Broadcast fans out env to every currently connected peer. Send
// failures are logged and do not stop the fan-out to remaining peers —
// there is no retry and no guaranteed delivery (spec §4.G).
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.peers {
		if err := p.Send(env); err != nil {
			h.log.Warn("broadcast to peer failed", "peer", p.id, "error", err)
		}
	}
}

// Addresses returns the "host:port"-style label of every connected peer.
func (h *Hub) Addresses() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, p.label)
	}
	return out
}

// Count returns the number of currently connected peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

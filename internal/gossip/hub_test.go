package gossip

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duskline/duskchain/internal/chain"
	"github.com/duskline/duskchain/internal/txmodel"
)

type fakeDispatcher struct {
	latest          chain.Block
	full            []chain.Block
	pool            []txmodel.Transaction
	receivedBlocks  chan []chain.Block
	receivedPoolTxs chan []txmodel.Transaction
	admitPoolTxs    bool
}

func newFakeDispatcher() *fakeDispatcher {
	g := chain.Genesis()
	return &fakeDispatcher{
		latest:          g,
		full:            []chain.Block{g},
		receivedBlocks:  make(chan []chain.Block, 4),
		receivedPoolTxs: make(chan []txmodel.Transaction, 4),
	}
}

func (f *fakeDispatcher) LatestBlock() chain.Block       { return f.latest }
func (f *fakeDispatcher) FullChain() []chain.Block       { return f.full }
func (f *fakeDispatcher) Pool() []txmodel.Transaction    { return f.pool }
func (f *fakeDispatcher) ReceiveBlockchain(from *Peer, blocks []chain.Block) {
	f.receivedBlocks <- blocks
}
func (f *fakeDispatcher) ReceivePoolTx(from *Peer, txs []txmodel.Transaction) bool {
	f.receivedPoolTxs <- txs
	return f.admitPoolTxs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialTestHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubRespondsToQueryLatest(t *testing.T) {
	d := newFakeDispatcher()
	hub := NewHub(d, testLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialTestHub(t, server)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the hub's own post-adopt QUERY_LATEST probe first.
	var drain Envelope
	if err := conn.ReadJSON(&drain); err != nil {
		t.Fatalf("ReadJSON (drain): %v", err)
	}

	if err := conn.WriteJSON(NewQueryLatest()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var resp Envelope
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	blocks, err := resp.Blocks()
	if err != nil {
		t.Fatalf("Blocks(): %v", err)
	}
	if len(blocks) != 1 || blocks[0].Hash != d.latest.Hash {
		t.Fatalf("unexpected response blocks: %+v", blocks)
	}
}

func TestHubDispatchesResponseBlockchainToDispatcher(t *testing.T) {
	d := newFakeDispatcher()
	hub := NewHub(d, testLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialTestHub(t, server)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var drain Envelope
	if err := conn.ReadJSON(&drain); err != nil {
		t.Fatalf("ReadJSON (drain): %v", err)
	}

	candidate := []chain.Block{chain.Genesis(), {Index: 1, PreviousHash: chain.Genesis().Hash, Hash: "next"}}
	env, err := NewResponseBlockchain(candidate)
	if err != nil {
		t.Fatalf("NewResponseBlockchain: %v", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case got := <-d.receivedBlocks:
		if len(got) != 2 || got[1].Hash != "next" {
			t.Fatalf("ReceiveBlockchain got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for ReceiveBlockchain")
	}
}

func TestHubBroadcastFansOutToAllPeers(t *testing.T) {
	d := newFakeDispatcher()
	hub := NewHub(d, testLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn1 := dialTestHub(t, server)
	defer conn1.Close()
	conn2 := dialTestHub(t, server)
	defer conn2.Close()

	// Drain each connection's post-handshake QUERY_LATEST probe before
	// asserting on the broadcast itself.
	conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	conn2.SetReadDeadline(time.Now().Add(2 * time.Second))
	var drain Envelope
	conn1.ReadJSON(&drain)
	conn2.ReadJSON(&drain)

	waitForPeerCount(t, hub, 2)

	env, _ := NewResponseTransactionPool(nil)
	hub.Broadcast(env)

	for _, c := range []*websocket.Conn{conn1, conn2} {
		var got Envelope
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := c.ReadJSON(&got); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if got.Type != ResponseTransactionPool {
			t.Fatalf("broadcast envelope type = %d, want ResponseTransactionPool", got.Type)
		}
	}
}

func waitForPeerCount(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d connected peers (has %d)", n, hub.Count())
}

// Package gossip implements the peer wire protocol of spec §4.G: the
// message envelope, the five message types, per-peer session lifecycle
// over persistent websocket connections, and the broadcast hub.
package gossip

import (
	"encoding/json"
	"fmt"

	"github.com/duskline/duskchain/internal/chain"
	"github.com/duskline/duskchain/internal/txmodel"
)

// MsgType enumerates the five gossip message types of spec §4.G.
type MsgType uint8

const (
	QueryLatest MsgType = iota
	QueryAll
	ResponseBlockchain
	QueryTransactionPool
	ResponseTransactionPool
)

// Envelope is the wire message: a type tag plus an optional
// JSON-stringified (double-encoded) payload, exactly matching spec
// §4.G's "data is a JSON string when carrying structured payloads".
type Envelope struct {
	Type MsgType `json:"type"`
	Data *string `json:"data"`
}

func stringify(v interface{}) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// NewQueryLatest builds a QUERY_LATEST envelope (no payload).
func NewQueryLatest() Envelope { return Envelope{Type: QueryLatest} }

// NewQueryAll builds a QUERY_ALL envelope (no payload).
func NewQueryAll() Envelope { return Envelope{Type: QueryAll} }

// NewQueryTransactionPool builds a QUERY_TRANSACTION_POOL envelope.
func NewQueryTransactionPool() Envelope { return Envelope{Type: QueryTransactionPool} }

// NewResponseBlockchain wraps blocks as a RESPONSE_BLOCKCHAIN envelope.
func NewResponseBlockchain(blocks []chain.Block) (Envelope, error) {
	data, err := stringify(blocks)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: ResponseBlockchain, Data: data}, nil
}

// NewResponseTransactionPool wraps txs as a RESPONSE_TRANSACTION_POOL envelope.
func NewResponseTransactionPool(txs []txmodel.Transaction) (Envelope, error) {
	data, err := stringify(txs)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: ResponseTransactionPool, Data: data}, nil
}

// Blocks parses a RESPONSE_BLOCKCHAIN envelope's payload.
func (e Envelope) Blocks() ([]chain.Block, error) {
	if e.Type != ResponseBlockchain || e.Data == nil {
		return nil, fmt.Errorf("envelope is not RESPONSE_BLOCKCHAIN")
	}
	var blocks []chain.Block
	if err := json.Unmarshal([]byte(*e.Data), &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Transactions parses a RESPONSE_TRANSACTION_POOL envelope's payload.
func (e Envelope) Transactions() ([]txmodel.Transaction, error) {
	if e.Type != ResponseTransactionPool || e.Data == nil {
		return nil, fmt.Errorf("envelope is not RESPONSE_TRANSACTION_POOL")
	}
	var txs []txmodel.Transaction
	if err := json.Unmarshal([]byte(*e.Data), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

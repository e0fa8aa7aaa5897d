// Package chain implements the block structure, PoW mining, difficulty
// retargeting, chain validation and fork replacement of spec §4.F.
package chain

import (
	"strconv"

	"github.com/duskline/duskchain/internal/cryptoutil"
	"github.com/duskline/duskchain/internal/txmodel"
)

// Tuning constants from spec §4.F.
const (
	BlockGenerationIntervalSeconds  = 10
	DifficultyAdjustmentInterval    = 10
	TimestampToleranceMillis  int64 = 60_000
)

// Block is a single link in the chain.
type Block struct {
	Index        uint64                 `json:"index"`
	Timestamp    int64                  `json:"timestamp"`
	Transactions []txmodel.Transaction  `json:"transactions"`
	PreviousHash string                 `json:"previousHash"`
	Hash         string                 `json:"hash"`
	Difficulty   uint32                 `json:"difficulty"`
	Proof        uint64                 `json:"proof"`
}

// txConcatenation is the canonical, from-scratch serialization this
// implementation chose for the Open Question in spec §9: the
// concatenation of each transaction's id, in order. See DESIGN.md.
func txConcatenation(txs []txmodel.Transaction) string {
	var s string
	for _, tx := range txs {
		s += tx.ID
	}
	return s
}

// ComputeHash computes a block's hash over its header fields and
// transaction list, excluding the Hash field itself.
func ComputeHash(index uint64, previousHash string, timestamp int64, txs []txmodel.Transaction, difficulty uint32, proof uint64) string {
	s := strconv.FormatUint(index, 10) +
		previousHash +
		strconv.FormatInt(timestamp, 10) +
		txConcatenation(txs) +
		strconv.FormatUint(uint64(difficulty), 10) +
		strconv.FormatUint(proof, 10)
	return cryptoutil.Sha256HexString(s)
}

// HashOf recomputes the hash a block should carry.
func HashOf(b Block) string {
	return ComputeHash(b.Index, b.PreviousHash, b.Timestamp, b.Transactions, b.Difficulty, b.Proof)
}

// Genesis is the fixed, byte-identical first block every peer starts
// from (spec §6). It is a literal constant, not a computed value — its
// hash predates this implementation's canonical transaction
// serialization and must never be recomputed.
func Genesis() Block {
	return Block{
		Index:        0,
		Timestamp:    1734667274522,
		PreviousHash: "",
		Difficulty:   0,
		Proof:        0,
		Transactions: []txmodel.Transaction{
			{
				ID: "e655f6a5f26dc9b4cac6e46f52336428287759cf81ef5ff10854f69d68f43fa3",
				TxIns: []txmodel.TxIn{
					{Signature: "", TxOutID: "", TxOutIndex: 0},
				},
				TxOuts: []txmodel.TxOut{
					{
						Address: "04bfcab8722991ae774db48f934ca79cfb7dd991229153b9f732ba5334aafcd8e7266e47076996b55a14bf9913ee3145ce0cfc1372ada8ada74bd287450313534a",
						Amount:  50,
					},
				},
			},
		},
		Hash: "45dcbece109d098f2764e371d20e29c5ef3dcc10d985c6bc8d563d1fbdc82d9e",
	}
}

// SatisfiesDifficulty reports whether a hex hash begins with at least
// difficulty leading zero bits.
func SatisfiesDifficulty(hash string, difficulty uint32) bool {
	return cryptoutil.LeadingZeroBits(hash) >= int(difficulty)
}

// Weight is a single block's contribution to chain weight: 2^difficulty.
func (b Block) Weight() uint64 {
	return uint64(1) << b.Difficulty
}

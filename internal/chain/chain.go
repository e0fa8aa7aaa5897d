package chain

import (
	"fmt"

	"github.com/duskline/duskchain/internal/errs"
)

// Chain is an ordered, append-only sequence of blocks rooted at Genesis.
type Chain struct {
	blocks []Block
}

// NewChain returns a chain containing only the genesis block.
func NewChain() *Chain {
	return &Chain{blocks: []Block{Genesis()}}
}

// FromBlocks wraps an already-validated block sequence as a Chain. The
// caller is responsible for having validated every block beforehand
// (see the node package's chain-replacement replay).
func FromBlocks(blocks []Block) *Chain {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return &Chain{blocks: out}
}

// Blocks returns a snapshot slice of every block.
func (c *Chain) Blocks() []Block {
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Latest returns the chain tip.
func (c *Chain) Latest() Block {
	return c.blocks[len(c.blocks)-1]
}

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// ByHash returns the block with the given hash, if any.
func (c *Chain) ByHash(hash string) (Block, bool) {
	for _, b := range c.blocks {
		if b.Hash == hash {
			return b, true
		}
	}
	return Block{}, false
}

// Weight is the chain's total fork-choice weight: sum of 2^difficulty
// across every block.
func (c *Chain) Weight() uint64 {
	var w uint64
	for _, b := range c.blocks {
		w += b.Weight()
	}
	return w
}

// NextDifficulty is the difficulty the next block appended to c must carry.
func (c *Chain) NextDifficulty() uint32 {
	return NextDifficulty(c.blocks)
}

// Append pushes a block already validated by the caller onto the chain.
func (c *Chain) Append(b Block) {
	c.blocks = append(c.blocks, b)
}

// ValidateHeader checks a candidate block's structure, linkage,
// timestamp, hash, PoW and retarget difficulty against the chain it
// extends — everything in spec §4.F's Append order except the
// transaction-semantics step, which requires the UTXO set and lives in
// the node package. precedingBlocks is every block up to and including
// the tip candidate extends, oldest first — the same shape NextDifficulty
// takes, since the retarget check needs to look back a full adjustment
// interval, not just at the immediate tip.
func ValidateHeader(candidate Block, precedingBlocks []Block, nowMillis int64) error {
	prev := precedingBlocks[len(precedingBlocks)-1]
	if len(candidate.Transactions) == 0 {
		return fmt.Errorf("%w: block has no transactions", errs.ErrBadBlockStructure)
	}
	if candidate.Index != prev.Index+1 {
		return fmt.Errorf("%w: index %d does not follow %d", errs.ErrBadBlockStructure, candidate.Index, prev.Index)
	}
	if candidate.PreviousHash != prev.Hash {
		return fmt.Errorf("%w: previousHash does not match tip", errs.ErrBadLinkage)
	}
	if !(prev.Timestamp-TimestampToleranceMillis < candidate.Timestamp &&
		candidate.Timestamp-TimestampToleranceMillis < nowMillis) {
		return fmt.Errorf("%w: timestamp %d out of bounds", errs.ErrBadTimestamp, candidate.Timestamp)
	}
	if HashOf(candidate) != candidate.Hash {
		return fmt.Errorf("%w: hash does not match header", errs.ErrBadBlockStructure)
	}
	if !SatisfiesDifficulty(candidate.Hash, candidate.Difficulty) {
		return fmt.Errorf("%w: hash does not satisfy difficulty %d", errs.ErrBadPoW, candidate.Difficulty)
	}
	if want := NextDifficulty(precedingBlocks); candidate.Difficulty != want {
		return fmt.Errorf("%w: difficulty %d does not match retarget value %d", errs.ErrBadPoW, candidate.Difficulty, want)
	}
	return nil
}

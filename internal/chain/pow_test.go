package chain

import (
	"testing"

	"github.com/duskline/duskchain/internal/txmodel"
)

func TestFindBlockSatisfiesDifficulty(t *testing.T) {
	txs := []txmodel.Transaction{{ID: "abc"}}
	block, ok := FindBlock(1, "prevhash", 1000, txs, 8, nil)
	if !ok {
		t.Fatalf("FindBlock did not find a block")
	}
	if !SatisfiesDifficulty(block.Hash, 8) {
		t.Fatalf("found block's hash %q does not satisfy difficulty 8", block.Hash)
	}
	if block.Hash != HashOf(block) {
		t.Fatalf("found block's stored hash does not match a recomputation")
	}
}

func TestFindBlockCancellation(t *testing.T) {
	txs := []txmodel.Transaction{{ID: "abc"}}
	cancel := make(chan struct{})
	close(cancel)
	_, ok := FindBlock(1, "prevhash", 1000, txs, 32, cancel)
	if ok {
		t.Fatalf("FindBlock should abort immediately when cancel is already closed")
	}
}

func TestNextDifficultyHoldsBetweenRetargets(t *testing.T) {
	blocks := []Block{
		{Index: 0, Difficulty: 3, Timestamp: 0},
		{Index: 1, Difficulty: 3, Timestamp: 10_000},
	}
	if got := NextDifficulty(blocks); got != 3 {
		t.Errorf("NextDifficulty() = %d, want 3 (not a retarget boundary)", got)
	}
}

func TestNextDifficultyRaisesWhenFast(t *testing.T) {
	blocks := make([]Block, 11)
	blocks[0] = Block{Index: 0, Difficulty: 5, Timestamp: 0}
	for i := 1; i <= 10; i++ {
		blocks[i] = Block{Index: uint64(i), Difficulty: 5, Timestamp: int64(i * 1000)}
	}
	// Last block at index 10, 10 blocks produced in 10s vs expected 100s.
	if got, want := NextDifficulty(blocks), uint32(6); got != want {
		t.Errorf("NextDifficulty() = %d, want %d (faster than expected should raise difficulty)", got, want)
	}
}

func TestNextDifficultyLowersWhenSlow(t *testing.T) {
	blocks := make([]Block, 11)
	blocks[0] = Block{Index: 0, Difficulty: 5, Timestamp: 0}
	for i := 1; i <= 10; i++ {
		blocks[i] = Block{Index: uint64(i), Difficulty: 5, Timestamp: int64(i) * 250_000}
	}
	// 10 blocks took 2500s vs expected 100s — more than double, should lower.
	if got, want := NextDifficulty(blocks), uint32(4); got != want {
		t.Errorf("NextDifficulty() = %d, want %d (slower than expected should lower difficulty)", got, want)
	}
}

func TestNextDifficultyClampsAtZero(t *testing.T) {
	blocks := make([]Block, 11)
	blocks[0] = Block{Index: 0, Difficulty: 0, Timestamp: 0}
	for i := 1; i <= 10; i++ {
		blocks[i] = Block{Index: uint64(i), Difficulty: 0, Timestamp: int64(i) * 250_000}
	}
	if got := NextDifficulty(blocks); got != 0 {
		t.Errorf("NextDifficulty() = %d, want 0 (must not underflow below zero)", got)
	}
}

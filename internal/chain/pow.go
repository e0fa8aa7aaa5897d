package chain

import "github.com/duskline/duskchain/internal/txmodel"

// FindBlock performs the PoW search: increment proof from 0 until the
// resulting hash satisfies difficulty leading zero bits. cancel, if
// non-nil, is polled between attempts and aborts the search, returning
// ok=false — this is the cooperative cancellation point spec §5 and
// §9 call for when mining runs on its own worker goroutine.
func FindBlock(index uint64, previousHash string, timestamp int64, txs []txmodel.Transaction, difficulty uint32, cancel <-chan struct{}) (Block, bool) {
	for proof := uint64(0); ; proof++ {
		if cancel != nil {
			select {
			case <-cancel:
				return Block{}, false
			default:
			}
		}
		hash := ComputeHash(index, previousHash, timestamp, txs, difficulty, proof)
		if SatisfiesDifficulty(hash, difficulty) {
			return Block{
				Index:        index,
				Timestamp:    timestamp,
				Transactions: txs,
				PreviousHash: previousHash,
				Hash:         hash,
				Difficulty:   difficulty,
				Proof:        proof,
			}, true
		}
	}
}

// NextDifficulty computes the difficulty the next block (to be appended
// after chain's current tip) must satisfy, per spec §4.F's retarget
// rule: every DifficultyAdjustmentInterval blocks, compare the time
// taken to produce the last interval's worth of blocks against the
// expected schedule and nudge difficulty by at most one.
func NextDifficulty(chainBlocks []Block) uint32 {
	last := chainBlocks[len(chainBlocks)-1]
	if last.Index%DifficultyAdjustmentInterval != 0 || last.Index == 0 {
		return last.Difficulty
	}
	adjIndex := last.Index - DifficultyAdjustmentInterval
	adjBlock := chainBlocks[adjIndex]

	expected := int64(BlockGenerationIntervalSeconds * DifficultyAdjustmentInterval)
	taken := (last.Timestamp / 1000) - (adjBlock.Timestamp / 1000)

	switch {
	case taken < expected/2:
		return adjBlock.Difficulty + 1
	case taken > expected*2:
		if adjBlock.Difficulty == 0 {
			return 0
		}
		return adjBlock.Difficulty - 1
	default:
		return adjBlock.Difficulty
	}
}

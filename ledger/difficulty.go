package ledger

import "time"

// DifficultyPolicy retargets mining difficulty from recent block times.
type DifficultyPolicy struct {
	Window          int
	TargetBlockTime time.Duration
	Initial         int
}

// Next returns the difficulty for the block following chain.
//
// Until the chain holds a full window it returns Initial. Afterwards the mean
// interval over the trailing window raises the difficulty of the last block by
// one below 80% of the target and lowers it by one (never under 1) above 120%.
func (p DifficultyPolicy) Next(chain []Block) int {
	if p.Window < 2 || len(chain) < p.Window {
		return p.Initial
	}
	recent := chain[len(chain)-p.Window:]
	last := recent[len(recent)-1]
	span := time.Duration(last.Timestamp - recent[0].Timestamp)
	avg := span / time.Duration(p.Window-1)

	switch {
	case avg*10 < p.TargetBlockTime*8:
		return min(last.Difficulty+1, MaxDifficulty)
	case avg*10 > p.TargetBlockTime*12:
		return max(1, last.Difficulty-1)
	}
	return last.Difficulty
}

package indexer

import (
	"fmt"
	"strings"
)

// BlockRange is an inclusive span of blocks fetched in one eth_getLogs call.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len is the number of blocks in r.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// Halve splits r into two adjacent ranges. r must span at least two blocks.
func (r BlockRange) Halve() (BlockRange, BlockRange) {
	mid := r.From + (r.To-r.From)/2
	return BlockRange{From: r.From, To: mid}, BlockRange{From: mid + 1, To: r.To}
}

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d is before from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
	}
}

// tooManyResults matches the errors providers return when a log query
// covers too many blocks or matches too many logs.
var tooManyResults = []string{
	"query returned more than",
	"log response size exceeded",
	"block range is too wide",
	"block range too large",
	"exceed maximum block range",
	"range limit exceeded",
}

func isRangeTooLarge(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range tooManyResults {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

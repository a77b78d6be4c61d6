package collector

import (
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// MaxBatchSize is the upstream limit on keywords per request.
const MaxBatchSize = 5

// SplitBatches partitions keywords into ordered sub-batches of at most size
// entries each. Concatenating the sub-batches in order reproduces the input
// exactly, so results can be demultiplexed back to caller order. A size of
// zero or less falls back to MaxBatchSize.
func SplitBatches(keywords []string, size int) ([][]string, error) {
	if len(keywords) == 0 {
		return nil, models.NewValidationError("keywords", "cannot batch an empty keyword set")
	}
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}

	batches := make([][]string, 0, (len(keywords)+size-1)/size)
	for start := 0; start < len(keywords); start += size {
		end := start + size
		if end > len(keywords) {
			end = len(keywords)
		}
		batches = append(batches, keywords[start:end])
	}
	return batches, nil
}

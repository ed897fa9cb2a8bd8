package ranking

import (
	"math/rand"

	"github.com/Ahmed-Sermani/okapi/graph"
)

// SampleRelevantAndIrrelevant picks up to bufferSize distinct relevant items
// out of positives and the same number of irrelevant items from the
// inclusive range [minItem, maxItem], skipping every positive. Positives
// outside the range are ignored. When fewer candidates exist than requested
// both samples are cut to the size that can be paired and the number of
// missing pairs is returned as the shortfall.
//
// The result only depends on the arguments and the state of rnd.
func SampleRelevantAndIrrelevant(rnd *rand.Rand, positives []graph.ID, minItem, maxItem int64, bufferSize int) (relevant, irrelevant []graph.ID, shortfall int) {
	seen := make(map[int64]struct{}, len(positives))
	distinct := make([]graph.ID, 0, len(positives))
	for _, id := range positives {
		if id.Num < minItem || id.Num > maxItem {
			continue
		}
		if _, dup := seen[id.Num]; dup {
			continue
		}
		seen[id.Num] = struct{}{}
		distinct = append(distinct, id)
	}

	relevant = distinct
	if len(distinct) > bufferSize {
		// partial Fisher-Yates shuffle
		for i := 0; i < bufferSize; i++ {
			j := i + rnd.Intn(len(distinct)-i)
			distinct[i], distinct[j] = distinct[j], distinct[i]
		}
		relevant = distinct[:bufferSize]
	}

	irrelevant = sampleNegatives(rnd, seen, minItem, maxItem, len(relevant))
	relevant = relevant[:len(irrelevant)]
	return relevant, irrelevant, bufferSize - len(relevant)
}

func sampleNegatives(rnd *rand.Rand, positives map[int64]struct{}, minItem, maxItem int64, want int) []graph.ID {
	if want == 0 {
		return nil
	}

	// span is 0 when the range covers every int64
	span := uint64(maxItem-minItem) + 1
	if span != 0 && span-uint64(len(positives)) <= uint64(want) {
		// every candidate is needed; take them in ascending order
		out := make([]graph.ID, 0, want)
		for num := minItem; ; num++ {
			if _, pos := positives[num]; !pos {
				out = append(out, graph.NewID(num))
			}
			if num == maxItem {
				break
			}
		}
		return out
	}

	out := make([]graph.ID, 0, want)
	chosen := make(map[int64]struct{}, want)
	for len(out) < want {
		offset := rnd.Uint64()
		if span != 0 {
			offset %= span
		}
		num := minItem + int64(offset)
		if _, pos := positives[num]; pos {
			continue
		}
		if _, dup := chosen[num]; dup {
			continue
		}
		chosen[num] = struct{}{}
		out = append(out, graph.NewID(num))
	}
	return out
}

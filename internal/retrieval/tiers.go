package retrieval

import "github.com/rosterlab/rosterlab/pkg/models"

// TierPlan bounds a retrieval: how many ranked rows to fetch and how the
// filtered rows are bucketed by usage before capping.
//
// A candidate is high-usage when usage > High, viable when Low < usage <= High,
// and niche otherwise. Caps apply to the buckets in that order.
type TierPlan struct {
	FetchLimit int
	High       float64
	Low        float64
	Caps       [3]int
}

var (
	// ScratchTiers builds a pool of at most 40 from the top 150 by usage.
	ScratchTiers = TierPlan{FetchLimit: 150, High: 15, Low: 3, Caps: [3]int{20, 14, 6}}

	// LeaderTiers builds a pool of at most 30 from the 80 nearest to the leader.
	LeaderTiers = TierPlan{FetchLimit: 80, High: 20, Low: 3, Caps: [3]int{14, 12, 4}}
)

// MaxPool is the largest pool the plan can produce.
func (p TierPlan) MaxPool() int {
	return p.Caps[0] + p.Caps[1] + p.Caps[2]
}

func (p TierPlan) tier(usage float64) int {
	switch {
	case usage > p.High:
		return 0
	case usage > p.Low:
		return 1
	default:
		return 2
	}
}

// Sample partitions ranked into the three buckets, keeping ranked order
// inside each bucket, and concatenates the capped buckets high, viable, niche.
// The result depends only on the input order.
func (p TierPlan) Sample(ranked []models.Candidate) []models.Candidate {
	var buckets [3][]models.Candidate
	for _, c := range ranked {
		t := p.tier(c.Usage)
		if len(buckets[t]) < p.Caps[t] {
			buckets[t] = append(buckets[t], c)
		}
	}
	pool := make([]models.Candidate, 0, len(buckets[0])+len(buckets[1])+len(buckets[2]))
	for _, b := range buckets {
		pool = append(pool, b...)
	}
	return pool
}

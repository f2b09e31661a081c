package roster

import "sort"

// RankPolicy orders candidate staff for a skill opening.
type RankPolicy int

const (
	// PreferSpecialists ranks staff with fewer skills first, keeping
	// multi-skilled staff free for later openings.
	PreferSpecialists RankPolicy = iota
	// PreferGeneralists ranks staff with more skills first so work blocks
	// can be rebalanced across skills during segmentation.
	PreferGeneralists
)

// candidate is one schedulable staff member with at least one demanded
// skill. order preserves the staff pool position for stable tie-breaks.
type candidate struct {
	staffID  string
	order    int
	skills   []string // sorted
	skillSet map[string]bool
}

func (c candidate) has(skill string) bool { return c.skillSet[skill] }

// candidatesFor filters the pool down to unassigned staff holding the
// skill, preserving pool order.
func candidatesFor(pool []candidate, skillID string, taken map[string]bool) []candidate {
	out := []candidate{}
	for _, c := range pool {
		if taken[c.staffID] {
			continue
		}
		if c.has(skillID) {
			out = append(out, c)
		}
	}
	return out
}

// rankCandidates orders candidates by skill count according to the policy.
// Ties keep pool order.
func rankCandidates(cands []candidate, policy RankPolicy) {
	sort.SliceStable(cands, func(i, j int) bool {
		if policy == PreferGeneralists {
			return len(cands[i].skills) > len(cands[j].skills)
		}
		return len(cands[i].skills) < len(cands[j].skills)
	})
}

package reasoning

import "github.com/lokeshpanthangi/Prompt-pipeing/internal/extract"

// answerGroup is one equivalence class of extracted answers under the
// normalized equality relation.
type answerGroup struct {
	// rep is the earliest-completing member; its answer represents the group.
	rep     PathResult
	members []PathResult
}

func (g answerGroup) size() int { return len(g.members) }

func (g answerGroup) avgQuality() float64 {
	if len(g.members) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range g.members {
		sum += m.Quality
	}
	return sum / float64(len(g.members))
}

// partitionByAnswer groups the extracted answers of results. Results that
// extracted nothing are skipped. Group membership uses extract.Equal, so
// "120", "120.0" and "$120" land in one group.
func partitionByAnswer(results []PathResult) []answerGroup {
	groups := make([]answerGroup, 0, len(results))
	for _, r := range results {
		if !r.Extracted {
			continue
		}
		placed := false
		for i := range groups {
			if extract.Equal(groups[i].rep.Answer, r.Answer) {
				groups[i].members = append(groups[i].members, r)
				if r.Seq < groups[i].rep.Seq {
					groups[i].rep = r
				}
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, answerGroup{rep: r, members: []PathResult{r}})
		}
	}
	return groups
}

// largestGroup picks the biggest equivalence class; size ties go to the
// group whose representative completed earliest.
func largestGroup(groups []answerGroup) (answerGroup, bool) {
	if len(groups) == 0 {
		return answerGroup{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.size() > best.size() || (g.size() == best.size() && g.rep.Seq < best.rep.Seq) {
			best = g
		}
	}
	return best, true
}

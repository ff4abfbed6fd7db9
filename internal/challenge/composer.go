// Package challenge assembles the daily challenge from per-subject question
// pools.
package challenge

import (
	"math/rand"
	"sort"

	"app/internal/model"
)

// Compose builds a balanced, deduplicated, shuffled question list.
//
// Questions are deduplicated by question text across all pools, first
// occurrence wins. The target is split evenly across subjects
// (floor(target/subjects)); each pool is shuffled and the per-subject quota
// taken from it. A pool smaller than its quota contributes everything it has;
// the shortfall is not redistributed to richer pools, so the result can come
// up short of target even when enough questions exist overall. The combined
// selection is shuffled once more and capped at target.
//
// An empty union of pools yields an empty list; callers must not start a
// session with zero questions.
func Compose(poolsBySubject map[string][]model.MCQItem, target int, rng *rand.Rand) []model.MCQItem {
	if target <= 0 || len(poolsBySubject) == 0 {
		return nil
	}

	// Dedupe by question text across every pool, preserving pool grouping.
	// Subjects are walked in sorted order so a seeded rng is reproducible.
	subjects := make([]string, 0, len(poolsBySubject))
	for s := range poolsBySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	seen := make(map[string]bool)
	deduped := make(map[string][]model.MCQItem, len(subjects))
	for _, s := range subjects {
		for _, q := range poolsBySubject[s] {
			if q.Question == "" || seen[q.Question] {
				continue
			}
			seen[q.Question] = true
			deduped[s] = append(deduped[s], q)
		}
	}

	perSubject := target / len(subjects)

	var combined []model.MCQItem
	for _, s := range subjects {
		pool := append([]model.MCQItem(nil), deduped[s]...)
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		take := perSubject
		if take > len(pool) {
			take = len(pool)
		}
		combined = append(combined, pool[:take]...)
	}

	rng.Shuffle(len(combined), func(i, j int) {
		combined[i], combined[j] = combined[j], combined[i]
	})

	if len(combined) > target {
		combined = combined[:target]
	}
	return combined
}

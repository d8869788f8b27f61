package review

import (
	"math/rand/v2"

	"github.com/phrazzld/jnd-review/internal/config"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// Picker returns an index in [0, n).
type Picker func(n int) int

// SelectionPolicy decides which batch a reviewer should work on next.
// Fairness comes first: only batches with the lowest review count are
// considered. Among those the choice is random so concurrent reviewers spread
// over equally under-reviewed batches.
type SelectionPolicy struct {
	// AvoidRepeatSubject skips the subject of the last completed batch,
	// unless every candidate has that subject.
	AvoidRepeatSubject bool
	// RandomTieBreak picks uniformly among the least-reviewed batches.
	// When false, the first one in catalog order wins.
	RandomTieBreak bool

	pick Picker
}

// NewSelectionPolicy creates a policy from the review configuration.
func NewSelectionPolicy(cfg config.ReviewConfig) *SelectionPolicy {
	return &SelectionPolicy{
		AvoidRepeatSubject: cfg.AvoidRepeatSubject,
		RandomTieBreak:     cfg.RandomTieBreak,
		pick:               rand.IntN,
	}
}

// WithPicker replaces the random source used for tie breaks.
func (p *SelectionPolicy) WithPicker(pick Picker) *SelectionPolicy {
	c := *p
	c.pick = pick
	return &c
}

// Candidates applies the anti-repeat rule to the remaining batches.
// It never filters the set down to nothing.
func (p *SelectionPolicy) Candidates(remaining []domain.BatchSummary, mostRecentSubject *int64) []domain.BatchSummary {
	if !p.AvoidRepeatSubject || mostRecentSubject == nil {
		return remaining
	}
	filtered := make([]domain.BatchSummary, 0, len(remaining))
	for _, b := range remaining {
		if b.Subject != *mostRecentSubject {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return remaining
	}
	return filtered
}

// Choose picks one of the candidates with the minimum review count.
// It reports false when there are no candidates.
func (p *SelectionPolicy) Choose(candidates []domain.BatchSummary) (domain.BatchSummary, bool) {
	if len(candidates) == 0 {
		return domain.BatchSummary{}, false
	}

	least := candidates[0].ReviewCount
	for _, b := range candidates[1:] {
		least = min(least, b.ReviewCount)
	}
	tied := make([]domain.BatchSummary, 0, len(candidates))
	for _, b := range candidates {
		if b.ReviewCount == least {
			tied = append(tied, b)
		}
	}

	if !p.RandomTieBreak || len(tied) == 1 {
		return tied[0], true
	}
	pick := p.pick
	if pick == nil {
		pick = rand.IntN
	}
	return tied[pick(len(tied))], true
}

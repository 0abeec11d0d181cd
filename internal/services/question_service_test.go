package services

import (
	"testing"

	"dailyquiz/internal/models"

	"github.com/stretchr/testify/assert"
)

func makeCandidates(fresh, review int) []DailyCandidate {
	candidates := make([]DailyCandidate, 0, fresh+review)
	id := 1
	for i := 0; i < review; i++ {
		candidates = append(candidates, DailyCandidate{
			Question:      models.Question{ID: id},
			TimesAnswered: 1 + i,
		})
		id++
	}
	for i := 0; i < fresh; i++ {
		candidates = append(candidates, DailyCandidate{
			Question:      models.Question{ID: id},
			TimesAnswered: 0,
		})
		id++
	}
	return candidates
}

func countBuckets(batch []DailyCandidate) (fresh, review int) {
	for _, c := range batch {
		if c.TimesAnswered == 0 {
			fresh++
		} else {
			review++
		}
	}
	return fresh, review
}

func TestSelectDailyBatch_RatioSplit(t *testing.T) {
	// ratio 0.3 with 5 slots reserves round(1.5)=2 for review, 3 for fresh
	batch := selectDailyBatch(makeCandidates(10, 10), 5, 0.3)

	assert.Len(t, batch, 5)
	fresh, review := countBuckets(batch)
	assert.Equal(t, 3, fresh)
	assert.Equal(t, 2, review)
}

func TestSelectDailyBatch_BackfillsFromFreshWhenReviewShort(t *testing.T) {
	batch := selectDailyBatch(makeCandidates(10, 1), 5, 0.3)

	assert.Len(t, batch, 5)
	fresh, review := countBuckets(batch)
	assert.Equal(t, 4, fresh)
	assert.Equal(t, 1, review)
}

func TestSelectDailyBatch_BackfillsFromReviewWhenFreshShort(t *testing.T) {
	batch := selectDailyBatch(makeCandidates(1, 10), 5, 0.3)

	assert.Len(t, batch, 5)
	fresh, review := countBuckets(batch)
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 4, review)
}

func TestSelectDailyBatch_PoolSmallerThanGoal(t *testing.T) {
	batch := selectDailyBatch(makeCandidates(2, 1), 10, 0.3)
	assert.Len(t, batch, 3)
}

func TestSelectDailyBatch_EmptyPool(t *testing.T) {
	assert.Empty(t, selectDailyBatch(nil, 10, 0.3))
}

func TestSelectDailyBatch_ZeroCount(t *testing.T) {
	assert.Empty(t, selectDailyBatch(makeCandidates(5, 5), 0, 0.3))
}

func TestSelectDailyBatch_AllReviewRatio(t *testing.T) {
	batch := selectDailyBatch(makeCandidates(10, 10), 4, 1.0)

	fresh, review := countBuckets(batch)
	assert.Equal(t, 0, fresh)
	assert.Equal(t, 4, review)
}

func TestSelectDailyBatch_PrefersHigherPriorityWithinBuckets(t *testing.T) {
	// Candidates arrive ordered by priority; the batch must keep the head of
	// each bucket.
	candidates := makeCandidates(5, 5)
	batch := selectDailyBatch(candidates, 4, 0.5)

	assert.Len(t, batch, 4)
	fresh, review := countBuckets(batch)
	assert.Equal(t, 2, fresh)
	assert.Equal(t, 2, review)
	// Review candidates have IDs 1..5, fresh 6..10; heads are lowest IDs.
	ids := []int{batch[0].Question.ID, batch[1].Question.ID, batch[2].Question.ID, batch[3].Question.ID}
	assert.ElementsMatch(t, []int{1, 2, 6, 7}, ids)
}

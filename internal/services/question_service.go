package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"
)

// DailyCandidate is a question eligible for daily assignment, carrying its
// cached priority score and the user's answer count.
type DailyCandidate struct {
	Question      models.Question
	PriorityScore float64
	TimesAnswered int
}

// QuestionServiceInterface defines question lookup and daily eligibility.
type QuestionServiceInterface interface {
	GetQuestionByID(ctx context.Context, questionID int) (*models.Question, error)
	GetEligibleQuestionsForDaily(ctx context.Context, userID int, date time.Time, limit int) ([]DailyCandidate, error)
	IncrementUsageCount(ctx context.Context, tx *sql.Tx, questionID int) error
}

// QuestionService implements QuestionServiceInterface backed by Postgres.
type QuestionService struct {
	db     *sql.DB
	logger *observability.Logger
	// repeatAvoidDays excludes questions answered correctly within the window.
	repeatAvoidDays int
	// knownExclusionDays excludes confidence-5 known questions within the window.
	knownExclusionDays int
}

// NewQuestionService creates a new question service.
func NewQuestionService(db *sql.DB, logger *observability.Logger, repeatAvoidDays, knownExclusionDays int) *QuestionService {
	return &QuestionService{
		db:                 db,
		logger:             logger,
		repeatAvoidDays:    repeatAvoidDays,
		knownExclusionDays: knownExclusionDays,
	}
}

// GetQuestionByID returns the question with decoded content.
func (s *QuestionService) GetQuestionByID(ctx context.Context, questionID int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_question_by_id", observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	var q models.Question
	var content []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT id, language, level, question_type, content, explanation, topic_category, usage_count, created_at
		FROM questions WHERE id = $1`,
		questionID).Scan(&q.ID, &q.Language, &q.Level, &q.Type, &content, &q.Explanation, &q.TopicCategory, &q.UsageCount, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrQuestionNotFound
		}
		return nil, contextutils.WrapError(err, "failed to query question")
	}
	if err := q.UnmarshalContent(content); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode question content")
	}
	return &q, nil
}

// GetEligibleQuestionsForDaily returns the candidate pool for a user's daily
// batch, ordered by priority score descending with question id as the
// tie-break so the ordering is deterministic. Excluded are questions answered
// correctly within the repeat-avoid window, questions marked known at
// confidence 5 within the known-exclusion window, and questions already
// assigned on the target date.
func (s *QuestionService) GetEligibleQuestionsForDaily(ctx context.Context, userID int, date time.Time, limit int) (result0 []DailyCandidate, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "get_eligible_questions_for_daily",
		observability.AttributeUserID(userID),
		observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.language, q.level, q.question_type, q.content, q.explanation, q.topic_category, q.usage_count, q.created_at,
		       COALESCE(qps.priority_score, 1.0) AS priority_score,
		       COALESCE(uqm.times_answered, 0) AS times_answered
		FROM questions q
		JOIN users u ON u.id = $1
		LEFT JOIN question_priority_scores qps ON qps.question_id = q.id AND qps.user_id = $1
		LEFT JOIN user_question_metadata uqm ON uqm.question_id = q.id AND uqm.user_id = $1
		WHERE q.language = u.preferred_language
		  AND q.level = u.current_level
		  AND NOT EXISTS (
			SELECT 1 FROM user_responses ur
			WHERE ur.user_id = $1 AND ur.question_id = q.id AND ur.is_correct
			  AND ur.created_at > NOW() - make_interval(days => $2)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM user_question_metadata uqm2
			WHERE uqm2.user_id = $1 AND uqm2.question_id = q.id
			  AND uqm2.marked_as_known AND uqm2.confidence_level = 5
			  AND uqm2.marked_as_known_at > NOW() - make_interval(days => $3)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM daily_question_assignments dqa
			WHERE dqa.user_id = $1 AND dqa.question_id = q.id AND dqa.assignment_date = $4
		  )
		ORDER BY priority_score DESC, q.id ASC
		LIMIT $5`,
		userID, s.repeatAvoidDays, s.knownExclusionDays, date.Format("2006-01-02"), limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query eligible questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var candidates []DailyCandidate
	for rows.Next() {
		var c DailyCandidate
		var content []byte
		if err := rows.Scan(&c.Question.ID, &c.Question.Language, &c.Question.Level, &c.Question.Type, &content, &c.Question.Explanation, &c.Question.TopicCategory, &c.Question.UsageCount, &c.Question.CreatedAt, &c.PriorityScore, &c.TimesAnswered); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan candidate")
		}
		if err := c.Question.UnmarshalContent(content); err != nil {
			s.logger.Warn(ctx, "Skipping question with malformed content", map[string]interface{}{"question_id": c.Question.ID})
			continue
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate candidates")
	}
	return candidates, nil
}

// IncrementUsageCount bumps the question's usage counter inside the caller's
// transaction.
func (s *QuestionService) IncrementUsageCount(ctx context.Context, tx *sql.Tx, questionID int) error {
	_, err := tx.ExecContext(ctx, `UPDATE questions SET usage_count = usage_count + 1 WHERE id = $1`, questionID)
	if err != nil {
		return contextutils.WrapError(err, "failed to increment usage count")
	}
	return nil
}

// selectDailyBatch splits the candidate pool into review (previously answered)
// and fresh buckets and fills count slots. The fresh-question ratio reserves
// round(ratio*count) slots for review questions and the remainder for fresh
// ones; a shortage in one bucket is backfilled from the other. Candidates are
// already ordered by priority, so picks are the highest-priority in each
// bucket and the result is deterministic for a given pool.
func selectDailyBatch(candidates []DailyCandidate, count int, freshRatio float64) []DailyCandidate {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	var fresh, review []DailyCandidate
	for _, c := range candidates {
		if c.TimesAnswered == 0 {
			fresh = append(fresh, c)
		} else {
			review = append(review, c)
		}
	}

	reviewSlots := int(math.Round(freshRatio * float64(count)))
	if reviewSlots > count {
		reviewSlots = count
	}
	freshSlots := count - reviewSlots

	if len(review) < reviewSlots {
		freshSlots += reviewSlots - len(review)
		reviewSlots = len(review)
	}
	if len(fresh) < freshSlots {
		extra := freshSlots - len(fresh)
		freshSlots = len(fresh)
		if reviewSlots+extra <= len(review) {
			reviewSlots += extra
		} else {
			reviewSlots = len(review)
		}
	}

	batch := make([]DailyCandidate, 0, count)
	batch = append(batch, review[:reviewSlots]...)
	batch = append(batch, fresh[:freshSlots]...)
	return batch
}

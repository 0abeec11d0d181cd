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

	"github.com/lib/pq"
)

// Score calculation constants.
const (
	basePriorityScore    = 1.0
	maxPriorityScore     = 1000.0
	freshQuestionBoost   = 1.5
	highConfidenceFactor = 0.5
	weakAreaAccuracyMax  = 0.6
	weakAreaMinAttempts  = 3
)

// LearningServiceInterface defines priority scoring, learning preferences and
// per-question metadata operations.
type LearningServiceInterface interface {
	GetUserLearningPreferences(ctx context.Context, userID int) (*models.UserLearningPreferences, error)
	UpdateUserLearningPreferences(ctx context.Context, userID int, req *models.LearningPreferencesRequest) (*models.UserLearningPreferences, error)
	GetDefaultLearningPreferences() *models.UserLearningPreferences
	MarkQuestionAsKnown(ctx context.Context, userID, questionID int, confidenceLevel *int) error
	CalculatePriorityScore(ctx context.Context, userID, questionID int) (float64, error)
	UpdatePriorityScore(ctx context.Context, userID, questionID int) error
	UpdatePriorityScoreAsync(ctx context.Context, userID, questionID int)
	RecomputeUserScores(ctx context.Context, userID int) (int, error)
}

// LearningService implements LearningServiceInterface backed by Postgres.
type LearningService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewLearningService creates a new learning service.
func NewLearningService(db *sql.DB, logger *observability.Logger) *LearningService {
	return &LearningService{db: db, logger: logger}
}

// GetDefaultLearningPreferences returns the documented preference defaults.
func (s *LearningService) GetDefaultLearningPreferences() *models.UserLearningPreferences {
	return &models.UserLearningPreferences{
		FocusOnWeakAreas:     true,
		FreshQuestionRatio:   0.3,
		KnownQuestionPenalty: 0.1,
		ReviewIntervalDays:   7,
		WeakAreaBoost:        2.0,
		DailyGoal:            10,
	}
}

const preferencesColumns = `id, user_id, focus_on_weak_areas, fresh_question_ratio, known_question_penalty, review_interval_days, weak_area_boost, daily_goal, created_at, updated_at`

func scanPreferences(row *sql.Row) (*models.UserLearningPreferences, error) {
	var p models.UserLearningPreferences
	err := row.Scan(&p.ID, &p.UserID, &p.FocusOnWeakAreas, &p.FreshQuestionRatio, &p.KnownQuestionPenalty, &p.ReviewIntervalDays, &p.WeakAreaBoost, &p.DailyGoal, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserLearningPreferences returns the user's preferences, creating a
// default row on first read.
func (s *LearningService) GetUserLearningPreferences(ctx context.Context, userID int) (result0 *models.UserLearningPreferences, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "get_user_learning_preferences", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+preferencesColumns+` FROM user_learning_preferences WHERE user_id = $1`, userID)
	prefs, err := scanPreferences(row)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(err, "failed to query learning preferences")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, contextutils.WrapError(err, "failed to check user existence")
	}
	if !exists {
		return nil, contextutils.ErrUserNotFound
	}

	defaults := s.GetDefaultLearningPreferences()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_learning_preferences (user_id, focus_on_weak_areas, fresh_question_ratio, known_question_penalty, review_interval_days, weak_area_boost, daily_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, defaults.FocusOnWeakAreas, defaults.FreshQuestionRatio, defaults.KnownQuestionPenalty, defaults.ReviewIntervalDays, defaults.WeakAreaBoost, defaults.DailyGoal)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create default learning preferences")
	}

	row = s.db.QueryRowContext(ctx, `SELECT `+preferencesColumns+` FROM user_learning_preferences WHERE user_id = $1`, userID)
	prefs, err = scanPreferences(row)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read learning preferences after create")
	}
	return prefs, nil
}

// UpdateUserLearningPreferences upserts the provided fields, leaving unset
// fields at their current (or default) values.
func (s *LearningService) UpdateUserLearningPreferences(ctx context.Context, userID int, req *models.LearningPreferencesRequest) (result0 *models.UserLearningPreferences, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "update_user_learning_preferences", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	current, err := s.GetUserLearningPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FocusOnWeakAreas != nil {
		current.FocusOnWeakAreas = *req.FocusOnWeakAreas
	}
	if req.FreshQuestionRatio != nil {
		current.FreshQuestionRatio = *req.FreshQuestionRatio
	}
	if req.KnownQuestionPenalty != nil {
		current.KnownQuestionPenalty = *req.KnownQuestionPenalty
	}
	if req.ReviewIntervalDays != nil {
		current.ReviewIntervalDays = *req.ReviewIntervalDays
	}
	if req.WeakAreaBoost != nil {
		current.WeakAreaBoost = *req.WeakAreaBoost
	}
	if req.DailyGoal != nil {
		current.DailyGoal = *req.DailyGoal
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_learning_preferences (user_id, focus_on_weak_areas, fresh_question_ratio, known_question_penalty, review_interval_days, weak_area_boost, daily_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			focus_on_weak_areas = EXCLUDED.focus_on_weak_areas,
			fresh_question_ratio = EXCLUDED.fresh_question_ratio,
			known_question_penalty = EXCLUDED.known_question_penalty,
			review_interval_days = EXCLUDED.review_interval_days,
			weak_area_boost = EXCLUDED.weak_area_boost,
			daily_goal = EXCLUDED.daily_goal,
			updated_at = NOW()
		RETURNING `+preferencesColumns,
		userID, current.FocusOnWeakAreas, current.FreshQuestionRatio, current.KnownQuestionPenalty, current.ReviewIntervalDays, current.WeakAreaBoost, current.DailyGoal)

	prefs, err := scanPreferences(row)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update learning preferences")
	}
	return prefs, nil
}

// MarkQuestionAsKnown records the user's explicit known signal with an
// optional confidence level (1-5).
func (s *LearningService) MarkQuestionAsKnown(ctx context.Context, userID, questionID int, confidenceLevel *int) (err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "mark_question_as_known",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	if confidenceLevel != nil && (*confidenceLevel < 1 || *confidenceLevel > 5) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "confidence level %d out of range", *confidenceLevel)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_question_metadata (user_id, question_id, marked_as_known, marked_as_known_at, confidence_level)
		VALUES ($1, $2, TRUE, NOW(), $3)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			marked_as_known = TRUE,
			marked_as_known_at = NOW(),
			confidence_level = EXCLUDED.confidence_level,
			updated_at = NOW()`,
		userID, questionID, confidenceLevel)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return contextutils.ErrQuestionNotFound
		}
		return contextutils.WrapError(err, "failed to mark question as known")
	}

	s.UpdatePriorityScoreAsync(ctx, userID, questionID)
	return nil
}

// scoreInputs gathers everything the score formula needs.
type scoreInputs struct {
	prefs         *models.UserLearningPreferences
	markedAsKnown bool
	confidence    *int
	timesAnswered int
	lastCorrectAt *time.Time
	isWeakArea    bool
	hintWeight    float64
}

// computePriorityScore is the pure scoring function. Recomputing with
// unchanged inputs and the same clock yields the same value.
func computePriorityScore(in scoreInputs, now time.Time) float64 {
	score := basePriorityScore

	if in.isWeakArea && in.prefs.FocusOnWeakAreas {
		score *= in.prefs.WeakAreaBoost
	}

	if in.markedAsKnown {
		penalty := in.prefs.KnownQuestionPenalty
		if in.confidence != nil && *in.confidence == 5 {
			penalty *= highConfidenceFactor
		}
		score *= penalty
	}

	if in.timesAnswered == 0 {
		score *= freshQuestionBoost
	}

	if in.lastCorrectAt != nil {
		days := now.Sub(*in.lastCorrectAt).Hours() / 24
		interval := float64(in.prefs.ReviewIntervalDays)
		if interval <= 0 {
			interval = 1
		}
		factor := days / interval
		if factor < 0 {
			factor = 0
		}
		if factor > 1 {
			factor = 1
		}
		score *= factor
	}

	score += in.hintWeight

	return math.Min(math.Max(score, 0), maxPriorityScore)
}

// CalculatePriorityScore computes the priority score for a user/question pair
// from stored history, preferences and active generation hints.
func (s *LearningService) CalculatePriorityScore(ctx context.Context, userID, questionID int) (result0 float64, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "calculate_priority_score",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	prefs, err := s.GetUserLearningPreferences(ctx, userID)
	if err != nil {
		return 0, err
	}

	in := scoreInputs{prefs: prefs}

	err = s.db.QueryRowContext(ctx, `
		SELECT marked_as_known, confidence_level, times_answered
		FROM user_question_metadata
		WHERE user_id = $1 AND question_id = $2`,
		userID, questionID).Scan(&in.markedAsKnown, &in.confidence, &in.timesAnswered)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, contextutils.WrapError(err, "failed to query question metadata")
	}

	var lastCorrect sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM user_responses
		WHERE user_id = $1 AND question_id = $2 AND is_correct`,
		userID, questionID).Scan(&lastCorrect)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to query last correct response")
	}
	if lastCorrect.Valid {
		in.lastCorrectAt = &lastCorrect.Time
	}

	in.isWeakArea, err = s.isWeakAreaQuestion(ctx, userID, questionID)
	if err != nil {
		return 0, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(gh.priority_weight), 0)
		FROM generation_hints gh
		JOIN questions q ON q.language = gh.language
			AND q.level = gh.level
			AND q.question_type = gh.question_type
		WHERE gh.user_id = $1 AND q.id = $2 AND gh.expires_at > NOW()`,
		userID, questionID).Scan(&in.hintWeight)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to query generation hints")
	}

	return computePriorityScore(in, time.Now()), nil
}

// isWeakAreaQuestion reports whether the question's topic is a weak area for
// the user: accuracy below 60% over at least 3 attempts.
func (s *LearningService) isWeakAreaQuestion(ctx context.Context, userID, questionID int) (bool, error) {
	var accuracy float64
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(CASE WHEN ur.is_correct THEN 1.0 ELSE 0.0 END), 1.0), COUNT(*)
		FROM user_responses ur
		JOIN questions q ON q.id = ur.question_id
		WHERE ur.user_id = $1
		  AND q.topic_category IS NOT NULL
		  AND q.topic_category = (SELECT topic_category FROM questions WHERE id = $2)`,
		userID, questionID).Scan(&accuracy, &attempts)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to query topic accuracy")
	}
	return attempts >= weakAreaMinAttempts && accuracy < weakAreaAccuracyMax, nil
}

// UpdatePriorityScore recomputes and upserts the cached score.
func (s *LearningService) UpdatePriorityScore(ctx context.Context, userID, questionID int) (err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "update_priority_score",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID))
	defer observability.FinishSpan(span, &err)

	score, err := s.CalculatePriorityScore(ctx, userID, questionID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO question_priority_scores (user_id, question_id, priority_score, last_calculated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			priority_score = EXCLUDED.priority_score,
			last_calculated_at = NOW()`,
		userID, questionID, score)
	if err != nil {
		return contextutils.WrapError(err, "failed to upsert priority score")
	}
	return nil
}

// UpdatePriorityScoreAsync recomputes the score in the background. A stale
// score only affects future ordering, so failures are logged and dropped.
func (s *LearningService) UpdatePriorityScoreAsync(ctx context.Context, userID, questionID int) {
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.UpdatePriorityScore(bgCtx, userID, questionID); err != nil {
			s.logger.Warn(bgCtx, "Priority score update failed, score is stale", map[string]interface{}{
				"user_id":     userID,
				"question_id": questionID,
				"error":       err.Error(),
			})
		}
	}()
}

// RecomputeUserScores rebuilds the score cache for every question the user
// has history with. Returns the number of scores written.
func (s *LearningService) RecomputeUserScores(ctx context.Context, userID int) (result0 int, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "recompute_user_scores", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT question_id FROM user_responses WHERE user_id = $1
		UNION
		SELECT DISTINCT question_id FROM user_question_metadata WHERE user_id = $1`,
		userID)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to list user questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var questionIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return 0, contextutils.WrapError(err, "failed to scan question id")
		}
		questionIDs = append(questionIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, contextutils.WrapError(err, "failed to iterate user questions")
	}

	count := 0
	for _, questionID := range questionIDs {
		if err := s.UpdatePriorityScore(ctx, userID, questionID); err != nil {
			s.logger.Warn(ctx, "Skipping failed score recompute", map[string]interface{}{
				"user_id":     userID,
				"question_id": questionID,
				"error":       err.Error(),
			})
			continue
		}
		count++
	}
	return count, nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"

	"github.com/lib/pq"
)

// GenerationHintServiceInterface defines the queue of signals to the external
// question generator.
type GenerationHintServiceInterface interface {
	UpsertHint(ctx context.Context, userID int, language, level, questionType string, priorityWeight float64, ttl time.Duration) (*models.GenerationHint, error)
	GetActiveHintsForUser(ctx context.Context, userID int) ([]models.GenerationHint, error)
	ClearHint(ctx context.Context, userID int, language, level, questionType string) error
	ClearExpiredHints(ctx context.Context) (int, error)
}

// GenerationHintService implements GenerationHintServiceInterface backed by
// Postgres.
type GenerationHintService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewGenerationHintService creates a new generation hint service.
func NewGenerationHintService(db *sql.DB, logger *observability.Logger) *GenerationHintService {
	return &GenerationHintService{db: db, logger: logger}
}

const hintColumns = `id, user_id, language, level, question_type, priority_weight, expires_at, created_at, updated_at`

// UpsertHint inserts or refreshes a hint for the (user, language, level, type)
// tuple. An existing hint gets its weight and expiry replaced, not stacked.
func (s *GenerationHintService) UpsertHint(ctx context.Context, userID int, language, level, questionType string, priorityWeight float64, ttl time.Duration) (result0 *models.GenerationHint, err error) {
	ctx, span := observability.TraceHintFunction(ctx, "upsert_hint",
		observability.AttributeUserID(userID),
		observability.AttributeLanguage(language),
		observability.AttributeLevel(level),
		observability.AttributeQuestionType(questionType))
	defer observability.FinishSpan(span, &err)

	if !models.ValidQuestionType(questionType) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown question type %q", questionType)
	}
	if ttl <= 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "hint ttl must be positive")
	}

	var h models.GenerationHint
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO generation_hints (user_id, language, level, question_type, priority_weight, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW() + $6 * INTERVAL '1 second')
		ON CONFLICT (user_id, language, level, question_type) DO UPDATE SET
			priority_weight = EXCLUDED.priority_weight,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING `+hintColumns,
		userID, language, level, questionType, priorityWeight, int(ttl.Seconds())).Scan(
		&h.ID, &h.UserID, &h.Language, &h.Level, &h.QuestionType, &h.PriorityWeight, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, contextutils.ErrUserNotFound
		}
		return nil, contextutils.WrapError(err, "failed to upsert generation hint")
	}

	return &h, nil
}

// GetActiveHintsForUser returns the user's unexpired hints, heaviest first.
func (s *GenerationHintService) GetActiveHintsForUser(ctx context.Context, userID int) (result0 []models.GenerationHint, err error) {
	ctx, span := observability.TraceHintFunction(ctx, "get_active_hints_for_user", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hintColumns+`
		FROM generation_hints
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY priority_weight DESC, id ASC`,
		userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query generation hints")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var hints []models.GenerationHint
	for rows.Next() {
		var h models.GenerationHint
		if err := rows.Scan(&h.ID, &h.UserID, &h.Language, &h.Level, &h.QuestionType, &h.PriorityWeight, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan generation hint")
		}
		hints = append(hints, h)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate generation hints")
	}
	return hints, nil
}

// ClearHint removes a hint, typically after the generator satisfied it.
func (s *GenerationHintService) ClearHint(ctx context.Context, userID int, language, level, questionType string) (err error) {
	ctx, span := observability.TraceHintFunction(ctx, "clear_hint",
		observability.AttributeUserID(userID),
		observability.AttributeLanguage(language),
		observability.AttributeLevel(level),
		observability.AttributeQuestionType(questionType))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM generation_hints
		WHERE user_id = $1 AND language = $2 AND level = $3 AND question_type = $4`,
		userID, language, level, questionType)
	if err != nil {
		return contextutils.WrapError(err, "failed to clear generation hint")
	}
	return nil
}

// ClearExpiredHints removes all expired hints and returns the removed count.
func (s *GenerationHintService) ClearExpiredHints(ctx context.Context) (result0 int, err error) {
	ctx, span := observability.TraceHintFunction(ctx, "clear_expired_hints")
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM generation_hints WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to clear expired hints")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count cleared hints")
	}
	return int(rows), nil
}

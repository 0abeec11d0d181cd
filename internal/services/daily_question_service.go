package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dailyquiz/internal/config"
	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"
)

// DailyQuestionServiceInterface defines daily assignment allocation, retrieval
// and answer recording.
type DailyQuestionServiceInterface interface {
	AssignDailyQuestions(ctx context.Context, userID int, date time.Time) error
	GetDailyQuestions(ctx context.Context, userID int, date time.Time) ([]models.DailyQuestionAssignmentWithQuestion, error)
	GetDailyProgress(ctx context.Context, userID int, date time.Time) (*models.DailyProgress, error)
	GetAvailableDates(ctx context.Context, userID int) ([]string, error)
	SubmitDailyQuestionAnswer(ctx context.Context, userID, questionID int, date time.Time, answerIndex, responseTimeMs int) (*models.AnswerResult, error)
}

// DailyQuestionService implements DailyQuestionServiceInterface backed by
// Postgres.
type DailyQuestionService struct {
	db              *sql.DB
	logger          *observability.Logger
	cfg             *config.DailyConfig
	questionService QuestionServiceInterface
	learningService LearningServiceInterface
	hintService     GenerationHintServiceInterface
	userService     UserServiceInterface
}

// NewDailyQuestionService creates a new daily question service.
func NewDailyQuestionService(
	db *sql.DB,
	logger *observability.Logger,
	cfg *config.DailyConfig,
	questionService QuestionServiceInterface,
	learningService LearningServiceInterface,
	hintService GenerationHintServiceInterface,
	userService UserServiceInterface,
) *DailyQuestionService {
	return &DailyQuestionService{
		db:              db,
		logger:          logger,
		cfg:             cfg,
		questionService: questionService,
		learningService: learningService,
		hintService:     hintService,
		userService:     userService,
	}
}

// AssignDailyQuestions allocates the user's batch for the given date. The
// operation is idempotent: an existing batch short-circuits, and concurrent
// calls converge through the unique constraint on
// (user_id, question_id, assignment_date). An empty eligible pool is not an
// error; a generation hint is queued and the batch stays empty until the
// generator catches up.
func (s *DailyQuestionService) AssignDailyQuestions(ctx context.Context, userID int, date time.Time) (err error) {
	dateStr := date.Format("2006-01-02")
	ctx, span := observability.TraceDailyFunction(ctx, "assign_daily_questions",
		observability.AttributeUserID(userID),
		observability.AttributeAssignmentDate(dateStr))
	defer observability.FinishSpan(span, &err)

	var existing int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_question_assignments
		WHERE user_id = $1 AND assignment_date = $2`,
		userID, dateStr).Scan(&existing)
	if err != nil {
		return contextutils.WrapError(err, "failed to count existing assignments")
	}
	if existing > 0 {
		return nil
	}

	prefs, err := s.learningService.GetUserLearningPreferences(ctx, userID)
	if err != nil {
		return err
	}

	candidates, err := s.questionService.GetEligibleQuestionsForDaily(ctx, userID, date, s.cfg.CandidatePoolSize)
	if err != nil {
		return err
	}

	batch := selectDailyBatch(candidates, prefs.DailyGoal, prefs.FreshQuestionRatio)

	if len(batch) < prefs.DailyGoal {
		s.queueShortageHints(ctx, userID)
	}
	if len(batch) == 0 {
		s.logger.Info(ctx, "No eligible questions for daily batch", map[string]interface{}{
			"user_id": userID,
			"date":    dateStr,
		})
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	inserted := 0
	for _, candidate := range batch {
		result, execErr := tx.ExecContext(ctx, `
			INSERT INTO daily_question_assignments (user_id, question_id, assignment_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, question_id, assignment_date) DO NOTHING`,
			userID, candidate.Question.ID, dateStr)
		if execErr != nil {
			err = contextutils.WrapError(execErr, "failed to insert assignment")
			return err
		}
		rows, raErr := result.RowsAffected()
		if raErr != nil {
			err = contextutils.WrapError(raErr, "failed to check insert result")
			return err
		}
		if rows == 0 {
			// A concurrent allocation already placed this question.
			continue
		}
		if usageErr := s.questionService.IncrementUsageCount(ctx, tx, candidate.Question.ID); usageErr != nil {
			err = usageErr
			return err
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit assignments")
	}

	s.logger.Info(ctx, "Daily questions assigned", map[string]interface{}{
		"user_id":  userID,
		"date":     dateStr,
		"assigned": inserted,
		"goal":     prefs.DailyGoal,
	})
	return nil
}

// queueShortageHints asks the generator for more questions matching the
// user's language and level. Hint failures never block allocation.
func (s *DailyQuestionService) queueShortageHints(ctx context.Context, userID int) {
	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "Failed to load user for shortage hint", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return
	}
	for _, qType := range []models.QuestionType{models.Vocabulary, models.FillInBlank, models.QuestionAnswer, models.ReadingComprehension} {
		if _, err := s.hintService.UpsertHint(ctx, userID, user.PreferredLanguage, user.CurrentLevel, string(qType), 1.0, s.cfg.HintTTL); err != nil {
			s.logger.Warn(ctx, "Failed to queue generation hint", map[string]interface{}{
				"user_id":       userID,
				"question_type": string(qType),
				"error":         err.Error(),
			})
		}
	}
}

// GetDailyQuestions returns the user's batch for the date, allocating it
// first when absent. An empty pool after allocation surfaces as
// NoQuestionsAvailableError so callers can report generation in progress.
func (s *DailyQuestionService) GetDailyQuestions(ctx context.Context, userID int, date time.Time) (result0 []models.DailyQuestionAssignmentWithQuestion, err error) {
	dateStr := date.Format("2006-01-02")
	ctx, span := observability.TraceDailyFunction(ctx, "get_daily_questions",
		observability.AttributeUserID(userID),
		observability.AttributeAssignmentDate(dateStr))
	defer observability.FinishSpan(span, &err)

	assignments, err := s.queryDailyQuestions(ctx, userID, dateStr)
	if err != nil {
		return nil, err
	}
	if len(assignments) > 0 {
		return assignments, nil
	}

	if err := s.AssignDailyQuestions(ctx, userID, date); err != nil {
		return nil, err
	}

	assignments, err = s.queryDailyQuestions(ctx, userID, dateStr)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		user, userErr := s.userService.GetUserByID(ctx, userID)
		if userErr != nil {
			return nil, userErr
		}
		return nil, &NoQuestionsAvailableError{Language: user.PreferredLanguage, Level: user.CurrentLevel}
	}
	return assignments, nil
}

func (s *DailyQuestionService) queryDailyQuestions(ctx context.Context, userID int, dateStr string) ([]models.DailyQuestionAssignmentWithQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dqa.id, dqa.user_id, dqa.question_id, dqa.assignment_date,
		       dqa.is_completed, dqa.completed_at, dqa.user_answer_index, dqa.submitted_at, dqa.created_at,
		       q.id, q.language, q.level, q.question_type, q.content, q.explanation, q.topic_category, q.usage_count, q.created_at,
		       COALESCE(uqm.times_answered, 0), COALESCE(uqm.times_correct, 0), uqm.last_answered_at
		FROM daily_question_assignments dqa
		JOIN questions q ON q.id = dqa.question_id
		LEFT JOIN user_question_metadata uqm ON uqm.user_id = dqa.user_id AND uqm.question_id = dqa.question_id
		WHERE dqa.user_id = $1 AND dqa.assignment_date = $2
		ORDER BY dqa.id ASC`,
		userID, dateStr)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query daily questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var assignments []models.DailyQuestionAssignmentWithQuestion
	for rows.Next() {
		var a models.DailyQuestionAssignmentWithQuestion
		var q models.Question
		var content []byte
		var lastAnswered sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.QuestionID, &a.AssignmentDate,
			&a.IsCompleted, &a.CompletedAt, &a.UserAnswerIndex, &a.SubmittedAt, &a.CreatedAt,
			&q.ID, &q.Language, &q.Level, &q.Type, &content, &q.Explanation, &q.TopicCategory, &q.UsageCount, &q.CreatedAt,
			&a.UserTimesAnswered, &a.UserTimesCorrect, &lastAnswered,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan daily question")
		}
		if err := q.UnmarshalContent(content); err != nil {
			return nil, contextutils.WrapError(err, "failed to decode question content")
		}
		if lastAnswered.Valid {
			a.UserLastAnsweredAt = &lastAnswered.Time
		}
		a.Question = &q
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate daily questions")
	}
	return assignments, nil
}

// GetDailyProgress returns completion counts for the date.
func (s *DailyQuestionService) GetDailyProgress(ctx context.Context, userID int, date time.Time) (result0 *models.DailyProgress, err error) {
	dateStr := date.Format("2006-01-02")
	ctx, span := observability.TraceDailyFunction(ctx, "get_daily_progress",
		observability.AttributeUserID(userID),
		observability.AttributeAssignmentDate(dateStr))
	defer observability.FinishSpan(span, &err)

	progress := &models.DailyProgress{Date: dateStr}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_completed)
		FROM daily_question_assignments
		WHERE user_id = $1 AND assignment_date = $2`,
		userID, dateStr).Scan(&progress.Total, &progress.Completed)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query daily progress")
	}
	return progress, nil
}

// GetAvailableDates returns the distinct dates the user has assignments for,
// newest first.
func (s *DailyQuestionService) GetAvailableDates(ctx context.Context, userID int) (result0 []string, err error) {
	ctx, span := observability.TraceDailyFunction(ctx, "get_available_dates", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT assignment_date FROM daily_question_assignments
		WHERE user_id = $1
		ORDER BY assignment_date DESC`,
		userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query assignment dates")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan assignment date")
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate assignment dates")
	}
	return dates, nil
}

// SubmitDailyQuestionAnswer records the user's answer for an assigned
// question. The assignment update, response insert, assignment-response
// bridge and metadata counters commit in one transaction; priority rescoring
// happens asynchronously afterwards.
func (s *DailyQuestionService) SubmitDailyQuestionAnswer(ctx context.Context, userID, questionID int, date time.Time, answerIndex, responseTimeMs int) (result0 *models.AnswerResult, err error) {
	dateStr := date.Format("2006-01-02")
	ctx, span := observability.TraceDailyFunction(ctx, "submit_daily_question_answer",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
		observability.AttributeAssignmentDate(dateStr))
	defer observability.FinishSpan(span, &err)

	question, err := s.questionService.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if answerIndex < 0 || answerIndex >= question.OptionCount() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidAnswerIndex, "answer index %d out of range for %d options", answerIndex, question.OptionCount())
	}
	isCorrect := answerIndex == question.CorrectAnswerIndex()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	var assignmentID int
	var isCompleted bool
	var previousAnswer sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT id, is_completed, user_answer_index
		FROM daily_question_assignments
		WHERE user_id = $1 AND question_id = $2 AND assignment_date = $3
		FOR UPDATE`,
		userID, questionID, dateStr).Scan(&assignmentID, &isCompleted, &previousAnswer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrAssignmentNotFound
		}
		return nil, contextutils.WrapError(err, "failed to query assignment")
	}
	if isCompleted && previousAnswer.Valid {
		return nil, contextutils.ErrQuestionAlreadyAnswered
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE daily_question_assignments
		SET is_completed = TRUE, completed_at = NOW(), user_answer_index = $1, submitted_at = NOW()
		WHERE id = $2 AND NOT is_completed`,
		answerIndex, assignmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update assignment")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to check assignment update")
	}
	if rows == 0 {
		return nil, contextutils.ErrQuestionAlreadyAnswered
	}

	var responseID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_responses (user_id, question_id, user_answer_index, is_correct, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userID, questionID, answerIndex, isCorrect, responseTimeMs).Scan(&responseID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert response")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_assignment_responses (assignment_id, response_id)
		VALUES ($1, $2)
		ON CONFLICT (assignment_id) DO NOTHING`,
		assignmentID, responseID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to link assignment response")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_question_metadata (user_id, question_id, times_answered, times_correct, last_answered_at)
		VALUES ($1, $2, 1, $3, NOW())
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			times_answered = user_question_metadata.times_answered + 1,
			times_correct = user_question_metadata.times_correct + $3,
			last_answered_at = NOW(),
			updated_at = NOW()`,
		userID, questionID, boolToInt(isCorrect))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update question metadata")
	}

	if isCorrect {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM daily_question_assignments
			WHERE user_id = $1 AND question_id = $2 AND assignment_date > $3 AND NOT is_completed`,
			userID, questionID, dateStr)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to remove future assignments")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit answer")
	}

	s.learningService.UpdatePriorityScoreAsync(ctx, userID, questionID)

	return &models.AnswerResult{
		AssignmentID:       assignmentID,
		ResponseID:         responseID,
		IsCorrect:          isCorrect,
		CorrectAnswerIndex: question.CorrectAnswerIndex(),
		Explanation:        question.Explanation.String,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

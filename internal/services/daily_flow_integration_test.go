package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"dailyquiz/internal/config"
	"dailyquiz/internal/database"
	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integrationEnv holds the services under test against a real database.
type integrationEnv struct {
	db       *sql.DB
	users    *UserService
	learning *LearningService
	question *QuestionService
	daily    *DailyQuestionService
	hints    *GenerationHintService
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	manager := database.NewManager(logger)
	db, err := manager.InitDB(context.Background(), &config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dailyCfg := &config.DailyConfig{
		RepeatAvoidDays:    7,
		KnownExclusionDays: 60,
		CandidatePoolSize:  50,
		HintTTL:            time.Hour,
	}

	env := &integrationEnv{db: db}
	env.users = NewUserService(db, logger)
	env.learning = NewLearningService(db, logger)
	env.question = NewQuestionService(db, logger, dailyCfg.RepeatAvoidDays, dailyCfg.KnownExclusionDays)
	env.hints = NewGenerationHintService(db, logger)
	env.daily = NewDailyQuestionService(db, logger, dailyCfg, env.question, env.learning, env.hints, env.users)
	return env
}

func (e *integrationEnv) createUser(t *testing.T, ctx context.Context) *models.User {
	t.Helper()
	username := fmt.Sprintf("it-user-%d", time.Now().UnixNano())
	user, err := e.users.CreateUser(ctx, username, "secret", "italian", "A1", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.users.DeleteUser(context.Background(), user.ID) })
	return user
}

func (e *integrationEnv) createQuestion(t *testing.T, ctx context.Context, topic string) int {
	t.Helper()
	var id int
	err := e.db.QueryRowContext(ctx, `
		INSERT INTO questions (language, level, question_type, content, explanation, topic_category)
		VALUES ('italian', 'A1', 'vocabulary', '{"question":"?","options":["a","b","c","d"],"correct_answer":0}', 'Option a is the dictionary form.', $1)
		RETURNING id`, topic).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = e.db.Exec(`DELETE FROM questions WHERE id = $1`, id)
	})
	return id
}

func (e *integrationEnv) countAssignments(t *testing.T, ctx context.Context, userID int, date string) int {
	t.Helper()
	var n int
	err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_question_assignments
		WHERE user_id = $1 AND assignment_date = $2`, userID, date).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestIntegration_AllocationIsIdempotent(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	goal := 5
	_, err := env.learning.UpdateUserLearningPreferences(ctx, user.ID, &models.LearningPreferencesRequest{DailyGoal: &goal})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		env.createQuestion(t, ctx, "animals")
	}

	date := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.daily.AssignDailyQuestions(ctx, user.ID, date))
	first := env.countAssignments(t, ctx, user.ID, "2030-01-15")
	assert.Equal(t, goal, first)

	require.NoError(t, env.daily.AssignDailyQuestions(ctx, user.ID, date))
	assert.Equal(t, first, env.countAssignments(t, ctx, user.ID, "2030-01-15"))
}

func TestIntegration_ConcurrentAllocationConverges(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	goal := 5
	_, err := env.learning.UpdateUserLearningPreferences(ctx, user.ID, &models.LearningPreferencesRequest{DailyGoal: &goal})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		env.createQuestion(t, ctx, "animals")
	}

	date := time.Date(2030, 1, 20, 0, 0, 0, 0, time.UTC)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.daily.AssignDailyQuestions(ctx, user.ID, date)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, goal, env.countAssignments(t, ctx, user.ID, "2030-01-20"),
		"racing allocators must converge on a single batch")
}

func TestIntegration_SubmitAnswerFlow(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	goal := 3
	_, err := env.learning.UpdateUserLearningPreferences(ctx, user.ID, &models.LearningPreferencesRequest{DailyGoal: &goal})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		env.createQuestion(t, ctx, "food")
	}

	date := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
	questions, err := env.daily.GetDailyQuestions(ctx, user.ID, date)
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	target := questions[0]

	// Out-of-range answer index is rejected.
	_, err = env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, target.QuestionID, date, 99, 100)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidAnswerIndex))

	result, err := env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, target.QuestionID, date, 0, 1200)
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 0, result.CorrectAnswerIndex)
	assert.Equal(t, "Option a is the dictionary form.", result.Explanation)

	// Resubmission is rejected.
	_, err = env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, target.QuestionID, date, 1, 800)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrQuestionAlreadyAnswered))

	// The assignment-response bridge links exactly one response.
	var bridged int
	err = env.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_assignment_responses WHERE assignment_id = $1`,
		target.ID).Scan(&bridged)
	require.NoError(t, err)
	assert.Equal(t, 1, bridged)

	// Answering an unassigned question fails.
	unassigned := env.createQuestion(t, ctx, "food")
	_, err = env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, unassigned, date, 0, 100)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAssignmentNotFound))

	// Progress reflects the completion.
	progress, err := env.daily.GetDailyProgress(ctx, user.ID, date)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Completed)
}

func TestIntegration_ConcurrentSubmitsSingleWinner(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	goal := 3
	_, err := env.learning.UpdateUserLearningPreferences(ctx, user.ID, &models.LearningPreferencesRequest{DailyGoal: &goal})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		env.createQuestion(t, ctx, "food")
	}

	date := time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC)
	questions, err := env.daily.GetDailyQuestions(ctx, user.ID, date)
	require.NoError(t, err)
	require.NotEmpty(t, questions)
	target := questions[0]

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(answer int) {
			defer wg.Done()
			_, submitErr := env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, target.QuestionID, date, answer, 300)
			errs <- submitErr
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, contextutils.IsError(err, contextutils.ErrQuestionAlreadyAnswered))
		rejected++
	}
	assert.Equal(t, 1, succeeded, "exactly one racing submit wins")
	assert.Equal(t, 1, rejected)

	var responses int
	err = env.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_responses WHERE user_id = $1 AND question_id = $2`,
		user.ID, target.QuestionID).Scan(&responses)
	require.NoError(t, err)
	assert.Equal(t, 1, responses)

	var bridged int
	err = env.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_assignment_responses WHERE assignment_id = $1`,
		target.ID).Scan(&bridged)
	require.NoError(t, err)
	assert.Equal(t, 1, bridged)
}

func TestIntegration_RecentlyCorrectQuestionsExcluded(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	questionID := env.createQuestion(t, ctx, "verbs")
	_, err := env.db.ExecContext(ctx, `
		INSERT INTO user_responses (user_id, question_id, user_answer_index, is_correct)
		VALUES ($1, $2, 0, TRUE)`, user.ID, questionID)
	require.NoError(t, err)

	date := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	candidates, err := env.question.GetEligibleQuestionsForDaily(ctx, user.ID, date, 50)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, questionID, c.Question.ID, "recently-correct question must not be eligible")
	}
}

func TestIntegration_HintUpsertReplacesWeight(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	first, err := env.hints.UpsertHint(ctx, user.ID, "italian", "A1", "vocabulary", 2.0, time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, first.PriorityWeight, 0.0001)

	second, err := env.hints.UpsertHint(ctx, user.ID, "italian", "A1", "vocabulary", 5.0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 5.0, second.PriorityWeight, 0.0001, "weight is replaced, not stacked")

	hints, err := env.hints.GetActiveHintsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, hints, 1)

	// A satisfied hint is removed outright.
	require.NoError(t, env.hints.ClearHint(ctx, user.ID, "italian", "A1", "vocabulary"))
	hints, err = env.hints.GetActiveHintsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, hints)
}

func TestIntegration_DeleteUserCascades(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()
	user := env.createUser(t, ctx)

	goal := 2
	_, err := env.learning.UpdateUserLearningPreferences(ctx, user.ID, &models.LearningPreferencesRequest{DailyGoal: &goal})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.createQuestion(t, ctx, "colors")
	}

	date := time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC)
	questions, err := env.daily.GetDailyQuestions(ctx, user.ID, date)
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	_, err = env.daily.SubmitDailyQuestionAnswer(ctx, user.ID, questions[0].QuestionID, date, 1, 500)
	require.NoError(t, err)

	_, err = env.hints.UpsertHint(ctx, user.ID, "italian", "A1", "qa", 1.0, time.Hour)
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteUser(ctx, user.ID))

	for _, table := range []string{
		"daily_question_assignments",
		"user_responses",
		"user_question_metadata",
		"question_priority_scores",
		"generation_hints",
		"user_learning_preferences",
	} {
		var n int
		err := env.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table), user.ID).Scan(&n)
		require.NoError(t, err)
		assert.Zero(t, n, "table %s should be empty after cascade", table)
	}
}

// Package models defines the database-backed types shared by services and
// handlers.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	// Vocabulary is a word-meaning multiple choice question.
	Vocabulary QuestionType = "vocabulary"
	// FillInBlank is a sentence completion question.
	FillInBlank QuestionType = "fill_blank"
	// QuestionAnswer is a free-form comprehension question with options.
	QuestionAnswer QuestionType = "qa"
	// ReadingComprehension is a passage-based question.
	ReadingComprehension QuestionType = "reading_comprehension"
)

// ValidQuestionType reports whether s names a supported question type.
func ValidQuestionType(s string) bool {
	switch QuestionType(s) {
	case Vocabulary, FillInBlank, QuestionAnswer, ReadingComprehension:
		return true
	}
	return false
}

// User is a registered learner.
type User struct {
	ID                int            `json:"id"`
	Username          string         `json:"username"`
	PasswordHash      sql.NullString `json:"-"`
	PreferredLanguage string         `json:"preferred_language"`
	CurrentLevel      string         `json:"current_level"`
	Timezone          sql.NullString `json:"timezone,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Question is a quiz question. Content holds the type-specific payload
// (question text, options, correct answer index) as stored in JSONB;
// Explanation is shown to the user after answering.
type Question struct {
	ID            int                    `json:"id"`
	Language      string                 `json:"language"`
	Level         string                 `json:"level"`
	Type          QuestionType           `json:"question_type"`
	Content       map[string]interface{} `json:"content"`
	Explanation   sql.NullString         `json:"explanation,omitempty"`
	TopicCategory sql.NullString         `json:"topic_category,omitempty"`
	UsageCount    int                    `json:"usage_count"`
	CreatedAt     time.Time              `json:"created_at"`
}

// UnmarshalContent decodes raw JSONB bytes into the question's content map.
func (q *Question) UnmarshalContent(raw []byte) error {
	return json.Unmarshal(raw, &q.Content)
}

// OptionCount returns the number of answer options, 0 when content is malformed.
func (q *Question) OptionCount() int {
	opts, ok := q.Content["options"].([]interface{})
	if !ok {
		return 0
	}
	return len(opts)
}

// CorrectAnswerIndex returns the stored correct option index, -1 when absent.
func (q *Question) CorrectAnswerIndex() int {
	v, ok := q.Content["correct_answer"].(float64)
	if !ok {
		return -1
	}
	return int(v)
}

// UserQuestionMetadata tracks a user's explicit signals and counters for one question.
type UserQuestionMetadata struct {
	ID              int          `json:"id"`
	UserID          int          `json:"user_id"`
	QuestionID      int          `json:"question_id"`
	MarkedAsKnown   bool         `json:"marked_as_known"`
	MarkedAsKnownAt sql.NullTime `json:"marked_as_known_at,omitempty"`
	ConfidenceLevel *int         `json:"confidence_level,omitempty"`
	TimesAnswered   int          `json:"times_answered"`
	TimesCorrect    int          `json:"times_correct"`
	LastAnsweredAt  sql.NullTime `json:"last_answered_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// QuestionPriorityScore is the recomputable per-user priority cache row.
type QuestionPriorityScore struct {
	ID               int       `json:"id"`
	UserID           int       `json:"user_id"`
	QuestionID       int       `json:"question_id"`
	PriorityScore    float64   `json:"priority_score"`
	LastCalculatedAt time.Time `json:"last_calculated_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserLearningPreferences controls how questions are prioritized and assigned.
type UserLearningPreferences struct {
	ID                   int       `json:"id"`
	UserID               int       `json:"user_id"`
	FocusOnWeakAreas     bool      `json:"focus_on_weak_areas"`
	FreshQuestionRatio   float64   `json:"fresh_question_ratio"`
	KnownQuestionPenalty float64   `json:"known_question_penalty"`
	ReviewIntervalDays   int       `json:"review_interval_days"`
	WeakAreaBoost        float64   `json:"weak_area_boost"`
	DailyGoal            int       `json:"daily_goal"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// GenerationHint signals to the external question generator that more
// questions of a given shape are needed for a user.
type GenerationHint struct {
	ID             int       `json:"id"`
	UserID         int       `json:"user_id"`
	Language       string    `json:"language"`
	Level          string    `json:"level"`
	QuestionType   string    `json:"question_type"`
	PriorityWeight float64   `json:"priority_weight"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DailyQuestionAssignmentWithQuestion is an assignment joined with its
// question content and the user's per-question stats.
type DailyQuestionAssignmentWithQuestion struct {
	ID              int          `json:"id"`
	UserID          int          `json:"user_id"`
	QuestionID      int          `json:"question_id"`
	AssignmentDate  time.Time    `json:"assignment_date"`
	IsCompleted     bool         `json:"is_completed"`
	CompletedAt     sql.NullTime `json:"completed_at,omitempty"`
	UserAnswerIndex *int         `json:"user_answer_index,omitempty"`
	SubmittedAt     *time.Time   `json:"submitted_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`

	Question *Question `json:"question,omitempty"`

	// Per-user stats for this question.
	UserTimesAnswered  int        `json:"user_times_answered"`
	UserTimesCorrect   int        `json:"user_times_correct"`
	UserLastAnsweredAt *time.Time `json:"user_last_answered_at,omitempty"`
}

// DailyProgress summarizes one day's assignment completion.
type DailyProgress struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// AnswerResult is returned after recording a daily answer.
type AnswerResult struct {
	AssignmentID       int    `json:"assignment_id"`
	ResponseID         int    `json:"response_id"`
	IsCorrect          bool   `json:"is_correct"`
	CorrectAnswerIndex int    `json:"correct_answer_index"`
	Explanation        string `json:"explanation,omitempty"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DailyAnswerRequest is the answer submission payload.
type DailyAnswerRequest struct {
	UserAnswerIndex int `json:"user_answer_index" binding:"min=0"`
	ResponseTimeMs  int `json:"response_time_ms" binding:"omitempty,min=0"`
}

// MarkKnownRequest is the mark-as-known payload.
type MarkKnownRequest struct {
	ConfidenceLevel *int `json:"confidence_level" binding:"omitempty,min=1,max=5"`
}

// LearningPreferencesRequest is the preferences update payload.
type LearningPreferencesRequest struct {
	FocusOnWeakAreas     *bool    `json:"focus_on_weak_areas"`
	FreshQuestionRatio   *float64 `json:"fresh_question_ratio" binding:"omitempty,min=0,max=1"`
	KnownQuestionPenalty *float64 `json:"known_question_penalty" binding:"omitempty,min=0,max=1"`
	ReviewIntervalDays   *int     `json:"review_interval_days" binding:"omitempty,min=1,max=365"`
	WeakAreaBoost        *float64 `json:"weak_area_boost" binding:"omitempty,min=1,max=10"`
	DailyGoal            *int     `json:"daily_goal" binding:"omitempty,min=1,max=50"`
}

// GenerationHintRequest is the hint upsert payload.
type GenerationHintRequest struct {
	Language       string  `json:"language" binding:"required"`
	Level          string  `json:"level" binding:"required"`
	QuestionType   string  `json:"question_type" binding:"required,question_type"`
	PriorityWeight float64 `json:"priority_weight" binding:"omitempty,min=0,max=100"`
	TTLMinutes     int     `json:"ttl_minutes" binding:"omitempty,min=1,max=10080"`
}

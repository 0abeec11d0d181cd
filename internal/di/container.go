// Package di wires the database and services for the server and CLI.
package di

import (
	"context"
	"database/sql"

	"dailyquiz/internal/config"
	"dailyquiz/internal/database"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"
	contextutils "dailyquiz/internal/utils"
)

// ServiceContainerInterface exposes initialized services to the application.
type ServiceContainerInterface interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	GetDB() *sql.DB
	GetUserService() (services.UserServiceInterface, error)
	GetQuestionService() (services.QuestionServiceInterface, error)
	GetLearningService() (services.LearningServiceInterface, error)
	GetDailyQuestionService() (services.DailyQuestionServiceInterface, error)
	GetGenerationHintService() (services.GenerationHintServiceInterface, error)
}

// ServiceContainer builds and owns the service graph.
type ServiceContainer struct {
	cfg    *config.Config
	logger *observability.Logger
	db     *sql.DB

	userService     *services.UserService
	questionService *services.QuestionService
	learningService *services.LearningService
	dailyService    *services.DailyQuestionService
	hintService     *services.GenerationHintService
}

// NewServiceContainer creates an uninitialized container.
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{cfg: cfg, logger: logger}
}

// Initialize opens the database, runs migrations and constructs all services.
func (c *ServiceContainer) Initialize(ctx context.Context) error {
	manager := database.NewManager(c.logger)
	db, err := manager.InitDB(ctx, &c.cfg.Database)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize database")
	}
	c.db = db

	c.userService = services.NewUserService(db, c.logger)
	c.questionService = services.NewQuestionService(db, c.logger, c.cfg.Daily.RepeatAvoidDays, c.cfg.Daily.KnownExclusionDays)
	c.learningService = services.NewLearningService(db, c.logger)
	c.hintService = services.NewGenerationHintService(db, c.logger)
	c.dailyService = services.NewDailyQuestionService(db, c.logger, &c.cfg.Daily, c.questionService, c.learningService, c.hintService, c.userService)

	return nil
}

// Shutdown closes held resources.
func (c *ServiceContainer) Shutdown(_ context.Context) error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetConfig returns the configuration.
func (c *ServiceContainer) GetConfig() *config.Config { return c.cfg }

// GetLogger returns the logger.
func (c *ServiceContainer) GetLogger() *observability.Logger { return c.logger }

// GetDB returns the database handle.
func (c *ServiceContainer) GetDB() *sql.DB { return c.db }

// GetUserService returns the user service.
func (c *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	if c.userService == nil {
		return nil, contextutils.ErrorWithContextf("user service not initialized")
	}
	return c.userService, nil
}

// GetQuestionService returns the question service.
func (c *ServiceContainer) GetQuestionService() (services.QuestionServiceInterface, error) {
	if c.questionService == nil {
		return nil, contextutils.ErrorWithContextf("question service not initialized")
	}
	return c.questionService, nil
}

// GetLearningService returns the learning service.
func (c *ServiceContainer) GetLearningService() (services.LearningServiceInterface, error) {
	if c.learningService == nil {
		return nil, contextutils.ErrorWithContextf("learning service not initialized")
	}
	return c.learningService, nil
}

// GetDailyQuestionService returns the daily question service.
func (c *ServiceContainer) GetDailyQuestionService() (services.DailyQuestionServiceInterface, error) {
	if c.dailyService == nil {
		return nil, contextutils.ErrorWithContextf("daily question service not initialized")
	}
	return c.dailyService, nil
}

// GetGenerationHintService returns the generation hint service.
func (c *ServiceContainer) GetGenerationHintService() (services.GenerationHintServiceInterface, error) {
	if c.hintService == nil {
		return nil, contextutils.ErrorWithContextf("generation hint service not initialized")
	}
	return c.hintService, nil
}

package handlers

import (
	"net/http"

	"dailyquiz/internal/config"
	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires middleware, handlers and routes.
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	learningService services.LearningServiceInterface,
	dailyService services.DailyQuestionServiceInterface,
	hintService services.GenerationHintServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	registerCustomValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.OpenTelemetry.ServiceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))
	router.Use(secure.New(secure.Config{
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		FrameDeny:          true,
	}))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions(cfg.Server.SessionName, store))

	authHandler := NewAuthHandler(userService, logger)
	dailyHandler := NewDailyQuestionHandler(dailyService, userService, logger)
	learningHandler := NewLearningHandler(learningService, logger)
	hintHandler := NewGenerationHintHandler(hintService, logger, cfg.Daily.HintTTL)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		authed := v1.Group("")
		authed.Use(RequireAuth())
		{
			daily := authed.Group("/daily")
			{
				daily.GET("/questions/:date", dailyHandler.GetDailyQuestions)
				daily.POST("/questions/:date/answer/:questionId", dailyHandler.SubmitDailyAnswer)
				daily.GET("/progress/:date", dailyHandler.GetDailyProgress)
				daily.GET("/dates", dailyHandler.GetAvailableDates)
			}

			authed.POST("/quiz/question/:id/mark-known", learningHandler.MarkQuestionKnown)

			prefs := authed.Group("/preferences")
			{
				prefs.GET("/learning", learningHandler.GetPreferences)
				prefs.PUT("/learning", learningHandler.UpdatePreferences)
			}

			hints := authed.Group("/hints")
			{
				hints.POST("", hintHandler.UpsertHint)
				hints.GET("", hintHandler.GetActiveHints)
			}
		}
	}

	return router
}

func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
			return models.ValidQuestionType(fl.Field().String())
		})
	}
}

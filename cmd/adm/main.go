// Package main is the adm CLI for operational tasks: migrations, score
// recomputation, hint cleanup and user bootstrap.
package main

import (
	"context"
	"fmt"
	"os"

	"dailyquiz/internal/config"
	"dailyquiz/internal/di"
	"dailyquiz/internal/observability"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adm",
		Short: "Admin tool for the daily quiz backend",
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newRecomputeScoresCmd())
	root.AddCommand(newClearHintCmd())
	root.AddCommand(newClearExpiredHintsCmd())
	root.AddCommand(newCreateUserCmd())
	return root
}

// withContainer loads config, builds a quiet logger and runs fn with an
// initialized service container.
func withContainer(fn func(ctx context.Context, container *di.ServiceContainer) error) error {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	// CLI runs use plain logging without exporters.
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.Endpoint = ""
	logger := observability.NewLogger(&cfg.OpenTelemetry)

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		_ = container.Shutdown(ctx)
	}()

	return fn(ctx, container)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize runs migrations as part of opening the database.
			return withContainer(func(_ context.Context, _ *di.ServiceContainer) error {
				cmd.Println("migrations applied")
				return nil
			})
		},
	}
}

func newRecomputeScoresCmd() *cobra.Command {
	var userID int
	cmd := &cobra.Command{
		Use:   "recompute-scores",
		Short: "Rebuild the priority score cache for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(ctx context.Context, container *di.ServiceContainer) error {
				learningService, err := container.GetLearningService()
				if err != nil {
					return err
				}
				count, err := learningService.RecomputeUserScores(ctx, userID)
				if err != nil {
					return err
				}
				cmd.Printf("recomputed %d scores for user %d\n", count, userID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "user ID to recompute scores for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newClearHintCmd() *cobra.Command {
	var userID int
	var language, level, questionType string
	cmd := &cobra.Command{
		Use:   "clear-hint",
		Short: "Remove a generation hint once the generator satisfied it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(ctx context.Context, container *di.ServiceContainer) error {
				hintService, err := container.GetGenerationHintService()
				if err != nil {
					return err
				}
				if err := hintService.ClearHint(ctx, userID, language, level, questionType); err != nil {
					return err
				}
				cmd.Printf("cleared hint for user %d (%s %s %s)\n", userID, language, level, questionType)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "user ID the hint belongs to")
	cmd.Flags().StringVar(&language, "language", "", "hint language")
	cmd.Flags().StringVar(&level, "level", "", "hint level")
	cmd.Flags().StringVar(&questionType, "type", "", "hint question type")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("language")
	_ = cmd.MarkFlagRequired("level")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newClearExpiredHintsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-expired-hints",
		Short: "Remove expired generation hints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(ctx context.Context, container *di.ServiceContainer) error {
				hintService, err := container.GetGenerationHintService()
				if err != nil {
					return err
				}
				count, err := hintService.ClearExpiredHints(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("cleared %d expired hints\n", count)
				return nil
			})
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var username, password, language, level, timezone string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(func(ctx context.Context, container *di.ServiceContainer) error {
				userService, err := container.GetUserService()
				if err != nil {
					return err
				}
				user, err := userService.CreateUser(ctx, username, password, language, level, timezone)
				if err != nil {
					return err
				}
				cmd.Printf("created user %d (%s)\n", user.ID, user.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&language, "language", "italian", "preferred language")
	cmd.Flags().StringVar(&level, "level", "A1", "proficiency level")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (empty for UTC)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

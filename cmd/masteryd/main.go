package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/server/engine"
	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/runner/review"
	"github.com/rankmarg/mastery/store"
	"github.com/rankmarg/mastery/store/db"
)

const version = "0.4.0"

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "masteryd",
		Short: "An adaptive mastery scoring and review scheduling service",
		Run: func(_cmd *cobra.Command, _args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			s, runner, err := setup(ctx)
			if err != nil {
				cancel()
				slog.Error("failed to start", "error", err)
				os.Exit(1)
			}

			go runner.Schedule(ctx)
			slog.Info("masteryd started",
				"version", instanceProfile.Version,
				"mode", instanceProfile.Mode,
				"driver", instanceProfile.Driver)

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c

			cancel()
			if err := s.Close(); err != nil {
				slog.Error("failed to close store", "error", err)
			}
			slog.Info("masteryd stopped")
		},
	}

	dueCmd = &cobra.Command{
		Use:   "due USER_ID",
		Short: "List the user's topics due for review right now",
		Args:  cobra.ExactArgs(1),
		Run: func(_cmd *cobra.Command, args []string) {
			ctx := context.Background()
			s, _, err := setup(ctx)
			if err != nil {
				slog.Error("failed to start", "error", err)
				os.Exit(1)
			}
			defer s.Close()

			due, err := s.ListDueReviewSchedules(ctx, args[0], time.Now())
			if err != nil {
				slog.Error("failed to list due reviews", "error", err)
				os.Exit(1)
			}
			for _, schedule := range due {
				fmt.Printf("%s\tnext=%s\tinterval=%dd\tretention=%.2f\n",
					schedule.TopicID,
					time.Unix(schedule.NextReviewTs, 0).UTC().Format(time.RFC3339),
					schedule.ReviewInterval,
					schedule.RetentionStrength)
			}
		},
	}

	runOnceCmd = &cobra.Command{
		Use:   "run-once",
		Short: "Execute a single scheduling pass and exit",
		Run: func(_cmd *cobra.Command, _args []string) {
			ctx := context.Background()
			s, runner, err := setup(ctx)
			if err != nil {
				slog.Error("failed to start", "error", err)
				os.Exit(1)
			}
			defer s.Close()

			summary := runner.RunOnce(ctx)
			fmt.Printf("run %s: processed=%d failed=%d skipped=%d duration=%s\n",
				summary.RunID, summary.Processed, summary.Failed, summary.Skipped, summary.Duration)
			for _, unitErr := range summary.Errors {
				fmt.Printf("  user %s: %v\n", unitErr.UserID, unitErr.Err)
			}
			if summary.Failed > 0 {
				os.Exit(1)
			}
		},
	}
)

func setup(ctx context.Context) (*store.Store, *review.Runner, error) {
	instanceProfile = &profile.Profile{
		Mode:             viper.GetString("mode"),
		Data:             viper.GetString("data"),
		Driver:           viper.GetString("driver"),
		DSN:              viper.GetString("dsn"),
		Version:          version,
		BatchSize:        viper.GetInt("batch-size"),
		Concurrency:      viper.GetInt("concurrency"),
		RetryAttempts:    viper.GetInt("retry-attempts"),
		EngineConfigPath: viper.GetString("engine-config"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, nil, err
	}

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(driver, instanceProfile)
	if err := s.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	engineConfig, err := config.Load(instanceProfile.EngineConfigPath)
	if err != nil {
		return nil, nil, err
	}

	e := engine.New(s, engineConfig)
	return s, review.NewRunner(s, e, instanceProfile), nil
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the engine, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")
	rootCmd.PersistentFlags().Int("batch-size", 100, "users fetched per scheduling page")
	rootCmd.PersistentFlags().Int("concurrency", 8, "simultaneous per-user computations")
	rootCmd.PersistentFlags().Int("retry-attempts", 3, "per-user retries on transient store failures")
	rootCmd.PersistentFlags().String("engine-config", "", "path to an engine tunables file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("mastery")
	viper.AutomaticEnv()

	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(dueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-screenwriting-be/internal/bootstrap"
	"ai-screenwriting-be/internal/config"
	"ai-screenwriting-be/internal/pkg/logger"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	providerFlag   string
	modelFlag      string
	baseURLFlag    string
	interviewsFlag string
	logFileFlag    string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Drive the screenwriting agent from a terminal",
		Long: `agentctl runs the agent engine in-process, without the HTTP server or
a database. Use it to try panels and interviews against a real provider.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "LLM provider (ollama, gemini, anthropic, openai)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model name")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "provider base URL")
	rootCmd.PersistentFlags().StringVar(&interviewsFlag, "interviews", "", "interview catalog YAML")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "logs/agentctl.log", "engine log file")

	rootCmd.AddCommand(chatCmd(), interviewsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if providerFlag != "" {
		cfg.Ai.LLMProvider = providerFlag
	}
	if modelFlag != "" {
		cfg.Ai.LLMModel = modelFlag
	}
	if baseURLFlag != "" {
		cfg.Ai.LLMBaseURL = baseURLFlag
	}
	if interviewsFlag != "" {
		cfg.Ai.InterviewsPath = interviewsFlag
	}
	return cfg
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			log := logger.NewIsolatedLogger(logFileFlag)
			defer log.Sync()

			r, err := bootstrap.NewModeRouter(cfg, log)
			if err != nil {
				return err
			}
			planner, err := bootstrap.NewPlanner(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			color.Cyan("agentctl: %s/%s. Type :help for commands.", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
			return newSession(cfg.Ai.LLMModel, r, planner, log, os.Stdout).run(ctx, os.Stdin)
		},
	}
}

func interviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interviews",
		Short: "List the configured entity interviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			planner, err := bootstrap.NewPlanner(loadConfig())
			if err != nil {
				return err
			}
			for _, iv := range planner.Catalog().Interviews() {
				color.Green("%s", iv.Kind)
				for i, step := range iv.Steps {
					fmt.Printf("  %d. %s\n", i+1, step.Question)
				}
			}
			return nil
		},
	}
}

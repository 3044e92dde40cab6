/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjudge-oj/runlog/config"
	"github.com/jjudge-oj/runlog/internal/logging"
	"github.com/jjudge-oj/runlog/internal/mq"
	"github.com/jjudge-oj/runlog/internal/server"
	"github.com/jjudge-oj/runlog/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd groups commands for the code run event stream.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with published code run events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log code run events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.MQ.Backend == "" || cfg.MQ.Backend == config.MQBackendNone {
			return errors.New("MQ_BACKEND is not configured")
		}

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := server.OpenQueue(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer func() { _ = queue.Close() }()

		logger.Info("tailing code run events", zap.String("channel", queue.Channel()))
		err = queue.SubscribeCodeRuns(ctx, func(_ context.Context, event types.CodeRunEvent) error {
			logger.Info("code run",
				zap.String("user_id", event.UserID),
				zap.String("code_run_id", event.CodeRun.ID),
				zap.String("language", event.CodeRun.Language),
				zap.String("time", event.CodeRun.Time),
			)
			return nil
		}, func(msg mq.Message, err error) {
			logger.Warn("skipping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

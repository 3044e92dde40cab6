/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jjudge-oj/runlog/config"
	"github.com/jjudge-oj/runlog/internal/logging"
	"github.com/jjudge-oj/runlog/internal/server"
	"github.com/jjudge-oj/runlog/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storeCmd groups commands that operate on the user document directly.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect or initialize the user document",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty user document when none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, docs *store.DocumentStore) error {
			return docs.Ensure(ctx)
		})
	},
}

var storeDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the user document as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, docs *store.DocumentStore) error {
			doc, err := docs.Load(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(doc)
		})
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeInitCmd, storeDumpCmd)
}

func withStore(ctx context.Context, fn func(context.Context, *store.DocumentStore) error) error {
	cfg := config.LoadConfig()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	backend, closeBackend, err := server.OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			fmt.Fprintf(os.Stderr, "close store: %v\n", err)
		}
	}()

	docs := store.NewDocumentStore(backend, store.WithLogger(logger))
	if err := fn(ctx, docs); err != nil {
		logger.Error("store command failed", zap.String("backend", backend.Name()), zap.Error(err))
		return err
	}
	return nil
}

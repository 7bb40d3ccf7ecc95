package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paulantoine/coursemate/api"
	"github.com/paulantoine/coursemate/internal/app"
	"github.com/paulantoine/coursemate/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the docs folder and start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Startup ingestion is idempotent: already-cataloged courses are
	// skipped, so restarts do not duplicate content.
	if _, err := os.Stat(cfg.DocsPath); err == nil {
		courses, chunks, err := a.RAG.IngestFolder(ctx, cfg.DocsPath, false)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", cfg.DocsPath, err)
		}
		a.Logger.Info("startup ingestion complete",
			"path", cfg.DocsPath,
			"courses_added", courses,
			"chunks_added", chunks,
			"courses_total", a.Store.CourseCount(),
		)
	} else {
		a.Logger.Warn("docs folder not found, serving existing store", "path", cfg.DocsPath)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	return api.NewServer(a.RAG, a.Logger).Run(ctx, addr)
}

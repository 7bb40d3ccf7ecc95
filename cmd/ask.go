package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulantoine/coursemate/internal/app"
	"github.com/paulantoine/coursemate/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against the ingested store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	if a.Store.CourseCount() == 0 {
		a.Logger.Warn("vector store is empty, run ingest first", "store_path", cfg.StorePath)
	}

	question := strings.Join(args, " ")
	answer, sources, err := a.RAG.Query(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range sources {
			if src.Link != "" {
				fmt.Printf("  %s (%s)\n", src.Text, src.Link)
			} else {
				fmt.Printf("  %s\n", src.Text)
			}
		}
	}
	return nil
}

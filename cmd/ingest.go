package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paulantoine/coursemate/internal/app"
	"github.com/paulantoine/coursemate/internal/config"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Load course documents into the vector store",
	Long: `Ingest parses every course document in the folder (default: the
configured docs_path), chunks it, and stores the embeddings. Courses
already in the store are skipped; --clear rebuilds from scratch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "wipe the store before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := cfg.DocsPath
	if len(args) > 0 {
		path = args[0]
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	courses, chunks, err := a.RAG.IngestFolder(ctx, path, ingestClear)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Added %d courses (%d chunks) from %s\n", courses, chunks, path)
	fmt.Printf("Store now holds %d courses and %d chunks\n", a.Store.CourseCount(), a.Store.ChunkCount())
	return nil
}

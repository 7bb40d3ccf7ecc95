// Package cmd contains the coursemate CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coursemate",
	Short: "Question answering over course materials",
	Long: `Coursemate answers questions about a folder of course documents.

Documents are chunked, embedded, and stored in a local vector database.
Questions go through a tool-calling model that searches the indexed
content and cites the lessons it drew from.

Run "coursemate serve" to ingest the docs folder and expose the HTTP
API, or "coursemate ask" for a one-shot question against an already
ingested store.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

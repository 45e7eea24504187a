// Package main provides the docsage CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docsage/docsage/cli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider  string
	strategy  string
	retriever string
	memKind   string
	topK      int
	agentic   bool
	verbose   bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "docsage",
		Short: "Question answering over document corpora",
		Long: `A CLI tool for answering natural-language questions over a corpus
of text documents.

Documents are segmented along their structure, embedded, and indexed
in-process. Questions are answered by retrieving relevant chunks and
synthesizing a grounded response, optionally driven by an agent loop
that decides when to search.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "stuff", "Answer synthesis strategy (stuff, refine)")
	rootCmd.PersistentFlags().StringVar(&retriever, "retriever", "dense", "Retrieval strategy (dense, margin, multiquery)")
	rootCmd.PersistentFlags().StringVar(&memKind, "memory", "window", "Memory kind (buffer, window, summary, summary_buffer)")
	rootCmd.PersistentFlags().IntVar(&topK, "top-k", 4, "Number of chunks retrieved per question")
	rootCmd.PersistentFlags().BoolVar(&agentic, "agentic", false, "Answer through the agent loop instead of the fixed pipeline")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:  provider,
		Strategy:  strategy,
		Retriever: retriever,
		Memory:    memKind,
		TopK:      topK,
		Agentic:   agentic,
		Verbose:   verbose,
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Segment and embed documents, reporting the chunk count",
		Long: `Segment and embed the given text files, reporting how many chunks
the corpus produces. The index lives in-process, so this is a dry run
for tuning chunk size and overlap; ask and chat ingest their corpus at
startup.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ingest(context.Background(), args, options())
		},
	}
}

func askCmd() *cobra.Command {
	var corpus []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question over the corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], corpus, options())
		},
	}

	cmd.Flags().StringArrayVarP(&corpus, "corpus", "c", nil, "Corpus file (repeatable)")

	return cmd
}

func chatCmd() *cobra.Command {
	var corpus []string
	var sessionID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question-answering session",
		Long: `Start an interactive session over the corpus. Conversation turns
feed the configured memory kind so follow-up questions resolve against
earlier ones. With --session, turns persist to SQLite and buffer or
window memory resumes them on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), corpus, sessionID, dbPath, options())
		},
	}

	cmd.Flags().StringArrayVarP(&corpus, "corpus", "c", nil, "Corpus file (repeatable)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")
	cmd.Flags().StringVar(&dbPath, "db", ".docsage/docsage.db", "Database path for storage")

	return cmd
}

func sessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Sessions(context.Background(), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", ".docsage/docsage.db", "Database path for storage")

	return cmd
}

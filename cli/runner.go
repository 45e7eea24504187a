// Command execution for CLI commands.
//
// Information Hiding:
// - Pipeline assembly (splitter, embedder, index, retriever) hidden
// - Memory and synthesizer selection hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docsage/docsage/answer"
	"github.com/docsage/docsage/config"
	"github.com/docsage/docsage/document"
	"github.com/docsage/docsage/engine"
	"github.com/docsage/docsage/index"
	"github.com/docsage/docsage/llm"
	"github.com/docsage/docsage/memory"
	"github.com/docsage/docsage/retrieve"
	"github.com/docsage/docsage/split"
	"github.com/docsage/docsage/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider  string
	Strategy  string
	Retriever string
	Memory    string
	TopK      int
	Agentic   bool
	Verbose   bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		Strategy:  "stuff",
		Retriever: "dense",
		Memory:    "window",
		TopK:      engine.DefaultTopK,
	}
}

// markdownMarkers orders heading levels coarsest first.
var markdownMarkers = []split.Marker{
	{Name: "section", Prefix: "# "},
	{Name: "subsection", Prefix: "## "},
	{Name: "subsubsection", Prefix: "### "},
}

// pipeline bundles the components built over an ingested corpus.
type pipeline struct {
	settings  config.Settings
	client    *llm.Client
	retriever retrieve.Retriever
	chunks    int
	docs      int
}

// Ingest loads the given files, segments and embeds them, and reports
// the resulting chunk count. The index is per-process, so this is a
// validation pass; ask and chat ingest their corpus at startup.
func Ingest(ctx context.Context, paths []string, opts Options) error {
	p, err := buildPipeline(ctx, paths, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d chunks from %d documents\n", p.chunks, p.docs)
	return nil
}

// Ask answers a single question over the corpus.
func Ask(ctx context.Context, question string, paths []string, opts Options) error {
	p, err := buildPipeline(ctx, paths, opts)
	if err != nil {
		return err
	}

	mem, err := buildMemory(p.client, p.settings, opts)
	if err != nil {
		return err
	}

	ans, err := runQuestion(ctx, p, mem, question, paths, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", ans.Text)
	if opts.Verbose {
		printSources(ans.Sources)
		printUsage(ans.Usage)
	}
	return nil
}

// Chat starts an interactive question-answering session over the corpus.
func Chat(ctx context.Context, paths []string, sessionID, dbPath string, opts Options) error {
	p, err := buildPipeline(ctx, paths, opts)
	if err != nil {
		return err
	}

	mem, err := buildMemory(p.client, p.settings, opts)
	if err != nil {
		return err
	}

	// Set up storage if session provided
	var store storage.SessionStore
	if sessionID != "" {
		s, err := storage.OpenSqlite(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()
		store = s
	}

	session := sessionID
	if session == "" {
		session = "default"
	}

	// Load existing history
	var history []memory.Turn
	if store != nil {
		history, err = store.Load(ctx, session)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(history) > 0 {
			if s, ok := mem.(seeder); ok {
				s.Seed(history)
				fmt.Printf("Resuming session '%s' (%d turns)\n\n", session, len(history))
			} else {
				fmt.Printf("Session '%s' has %d stored turns, but %q memory cannot resume them\n\n",
					session, len(history), opts.Memory)
			}
		}
	}

	fmt.Printf("Chat over %d chunks. Type 'exit' to quit.\n\n", p.chunks)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		ans, err := runQuestion(ctx, p, mem, input, paths, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			continue
		}

		fmt.Printf("\n%s\n\n", ans.Text)
		if opts.Verbose {
			printSources(ans.Sources)
			printUsage(ans.Usage)
		}

		// Add to history
		history = append(history,
			memory.Turn{Role: memory.RoleUser, Content: input},
			memory.Turn{Role: memory.RoleAssistant, Content: ans.Text},
		)

		// Save to storage
		if store != nil {
			if err := store.Save(ctx, session, history); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
			}
		}
	}

	return scanner.Err()
}

// Sessions lists stored session IDs.
func Sessions(ctx context.Context, dbPath string) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No stored sessions")
		return nil
	}

	for _, id := range sessions {
		turns, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("  %s (%d turns)\n", id, len(turns))
	}
	return nil
}

// seeder is implemented by memory kinds that can resume stored turns.
type seeder interface {
	Seed(turns []memory.Turn)
}

// runQuestion asks one question through either the conversational or the
// agentic engine.
func runQuestion(ctx context.Context, p *pipeline, mem memory.Memory, question string, paths []string, opts Options) (answer.Answer, error) {
	if opts.Agentic {
		eng, err := engine.NewAgentic(p.client, p.retriever, mem, corpusDescription(paths, p.docs), p.settings.Agent.MaxSteps)
		if err != nil {
			return answer.Answer{}, err
		}
		return eng.Ask(ctx, question)
	}

	strategy, err := answer.ParseStrategy(opts.Strategy)
	if err != nil {
		return answer.Answer{}, err
	}

	synth := answer.New(p.client)
	eng := engine.NewConversational(p.retriever, mem, synth, opts.TopK, answer.Options{
		Strategy:      strategy,
		ReturnSources: true,
		ContextBudget: p.settings.Answer.ContextBudget,
	})
	return eng.Ask(ctx, question)
}

// buildPipeline creates provider, embedder, splitter and index, ingests
// the corpus, and wires the requested retrieval strategy.
func buildPipeline(ctx context.Context, paths []string, opts Options) (*pipeline, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one corpus file is required")
	}

	provider, err := createProvider(opts.Provider)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider)

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}

	embedder, err := createEmbedder(opts.Provider)
	if err != nil {
		return nil, err
	}

	splitter, err := split.New(split.Config{
		MaxChunkSize: settings.Split.MaxChunkSize,
		Overlap:      settings.Split.Overlap,
		Markers:      markdownMarkers,
	})
	if err != nil {
		return nil, err
	}

	docs, err := loadDocuments(paths)
	if err != nil {
		return nil, err
	}

	ix := index.New()
	ingestor := engine.NewIngestor(splitter, embedder, ix)
	chunks, err := ingestor.Ingest(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	if opts.Verbose {
		fmt.Printf("Indexed %d chunks from %d documents\n", chunks, len(docs))
	}

	retriever, err := buildRetriever(embedder, ix, client, settings, opts)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		settings:  settings,
		client:    client,
		retriever: retriever,
		chunks:    chunks,
		docs:      len(docs),
	}, nil
}

// buildRetriever selects a retrieval strategy by name.
func buildRetriever(embedder llm.Embedder, ix *index.Index, client *llm.Client, settings config.Settings, opts Options) (retrieve.Retriever, error) {
	name := opts.Retriever
	if name == "" {
		name = settings.Retrieval.Strategy
	}

	switch name {
	case "dense":
		return retrieve.NewDense(embedder, ix), nil
	case "margin":
		return retrieve.NewMargin(embedder, ix), nil
	case "multiquery":
		inner := retrieve.NewDense(embedder, ix)
		return retrieve.NewMultiQuery(inner, client, settings.Retrieval.Variants), nil
	default:
		return nil, fmt.Errorf("unknown retriever: %q (want dense, margin, or multiquery)", name)
	}
}

// buildMemory selects a memory kind by name.
func buildMemory(client *llm.Client, settings config.Settings, opts Options) (memory.Memory, error) {
	kind := opts.Memory
	if kind == "" {
		kind = settings.Memory.Kind
	}

	switch kind {
	case "buffer":
		return memory.NewBuffer(), nil
	case "window":
		return memory.NewWindow(settings.Memory.WindowSize)
	case "summary":
		return memory.NewSummary(client), nil
	case "summary_buffer":
		return memory.NewSummaryBuffer(client, settings.Memory.TokenBudget, nil)
	default:
		return nil, fmt.Errorf("unknown memory kind: %q (want buffer, window, summary, or summary_buffer)", kind)
	}
}

// loadDocuments reads each path into a document tagged with its source.
func loadDocuments(paths []string) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, document.New(string(content), map[string]string{"source": path}))
	}
	return docs, nil
}

// corpusDescription summarizes the corpus for the agent system prompt.
func corpusDescription(paths []string, docCount int) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return fmt.Sprintf("a corpus of %d documents: %s", docCount, strings.Join(names, ", "))
}

// printSources prints the retrieved chunks backing an answer.
func printSources(sources []document.Chunk) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("--- Sources ---")
	for i, chunk := range sources {
		text := chunk.Text
		if len(text) > 120 {
			text = text[:120] + "..."
		}
		src := chunk.Metadata["source"]
		fmt.Printf("[%d] %s: %s\n", i+1, src, text)
	}
	fmt.Println("---------------")
	fmt.Println()
}

// printUsage prints aggregated token usage when the provider reports it.
func printUsage(usage *llm.TokenUsage) {
	if usage == nil {
		return
	}
	fmt.Printf("Tokens: %d prompt + %d completion = %d total\n\n",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

func createProvider(providerName string) (llm.Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return nil, err
	}

	settings, err := config.New(providerName)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(providerName)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// createEmbedder picks an embedding provider. Gemini embeds through its
// own API; every other chat provider pairs with OpenAI embeddings.
func createEmbedder(providerName string) (llm.Embedder, error) {
	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return nil, err
	}

	if providerType == llm.ProviderGemini {
		return llm.ProviderGemini.EmbedderFromEnv("")
	}
	return llm.ProviderOpenAI.EmbedderFromEnv("")
}

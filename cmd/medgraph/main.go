// Package main implements the medgraph CLI, a medical question-answering
// assistant backed by a local OpenAI-compatible model server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/medgraph/medgraph/internal/agent"
	"github.com/medgraph/medgraph/internal/assistant"
	"github.com/medgraph/medgraph/internal/config"
	"github.com/medgraph/medgraph/internal/fairness"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/retrieval"
	"github.com/medgraph/medgraph/internal/session"
	"github.com/medgraph/medgraph/internal/vision"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "medgraph",
	Short:   "Multi-agent medical question-answering assistant",
	Version: version,
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a medical question",
	Long: `Ask a medical question. The answer is routed through classification,
fact extraction, patient profiling, drafting, and a safety audit.

Examples:
  medgraph ask "What are the side effects of metformin?"
  medgraph ask --session visit-1 --language French "Explain my trial options"
  medgraph ask --image prescription.jpg "What is this medication for?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Index the starter knowledge base if it is empty",
	RunE:  runSeed,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored conversations",
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [title]",
	Short: "Set a session's title",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

var (
	sessionID string
	imagePath string
	age       string
	language  string
	education string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	askCmd.Flags().StringVar(&sessionID, "session", "", "session id for conversation history")
	askCmd.Flags().StringVar(&imagePath, "image", "", "prescription or medication-box image to analyze")
	askCmd.Flags().StringVar(&age, "age", "", "patient age group")
	askCmd.Flags().StringVar(&language, "language", "", "answer language")
	askCmd.Flags().StringVar(&education, "education", "", "explanation level")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(seedCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp(cmd.Context())
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	req := assistant.Request{
		SessionID: sessionID,
		Query:     args[0],
		Profile:   buildProfile(),
	}
	if imagePath != "" {
		image, err := os.ReadFile(imagePath)
		if err != nil {
			return fail(fmt.Errorf("read image: %w", err))
		}
		req.Image = image
	}

	resp, err := app.Answer(cmd.Context(), req)
	if err != nil {
		slog.Error("answer failed", "error", err)
		return fail(err)
	}

	fmt.Println(resp.Answer)
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	client := newLLMClient(cfg)
	store, err := newKnowledgeStore(cfg, client, logger)
	if err != nil {
		return fail(err)
	}
	if err := store.Seed(cmd.Context()); err != nil {
		return fail(fmt.Errorf("seed knowledge base: %w", err))
	}
	count, err := store.Count()
	if err != nil {
		return fail(err)
	}
	fmt.Printf("knowledge base ready: %d documents\n", count)
	return nil
}

func runSessionsDelete(_ *cobra.Command, args []string) error {
	store, err := openSessions()
	if err != nil {
		return fail(err)
	}
	defer store.Close()
	if err := store.Delete(args[0]); err != nil {
		return fail(err)
	}
	fmt.Printf("deleted session %s\n", args[0])
	return nil
}

func runSessionsRename(_ *cobra.Command, args []string) error {
	store, err := openSessions()
	if err != nil {
		return fail(err)
	}
	defer store.Close()
	if err := store.Rename(args[0], args[1]); err != nil {
		return fail(err)
	}
	return nil
}

func buildProfile() agent.Profile {
	p := agent.Profile{}
	if age != "" {
		p["age"] = age
	}
	if language != "" {
		p["language"] = language
	}
	if education != "" {
		p["education"] = education
	}
	return p
}

// buildApp wires the full collaborator chain from configuration.
func buildApp(ctx context.Context) (*assistant.Assistant, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client := newLLMClient(cfg)

	store, err := newKnowledgeStore(cfg, client, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Seed(ctx); err != nil {
		logger.Warn("knowledge base seeding failed", "error", err)
	}

	auditor := fairness.NewAuditor(client, logger)

	pipeline, err := agent.New(client, store, auditor, agent.Options{
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetrievalK: cfg.Vector.RetrievalK,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := []assistant.Option{assistant.WithLogger(logger)}
	cleanup := func() {}

	if cfg.Session.DBPath != "" {
		sessions, err := session.NewSQLiteStore(cfg.Session.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		opts = append(opts, assistant.WithSessions(sessions))
		cleanup = func() { sessions.Close() }
	}

	analyzer := vision.NewAnalyzer(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.VisionModel)
	opts = append(opts, assistant.WithVision(analyzer))

	app, err := assistant.New(pipeline, store, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return app, cleanup, nil
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLLMClient(cfg *config.Config) *llm.OpenAI {
	opts := []llm.OpenAIOption{
		llm.WithEmbeddingModel(cfg.LLM.EmbeddingModel),
		llm.WithRetry(llm.DefaultRetry),
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	return llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, opts...)
}

func newKnowledgeStore(cfg *config.Config, embedder retrieval.Embedder, logger *slog.Logger) (*retrieval.Store, error) {
	store, err := retrieval.NewStore(retrieval.Config{Path: cfg.Vector.Path}, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	return store, nil
}

func openSessions() (session.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Session.DBPath == "" {
		return nil, fmt.Errorf("session persistence is disabled (SESSION_DB_PATH is empty)")
	}
	return session.NewSQLiteStore(cfg.Session.DBPath)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fail prints a generic message to the user; detail goes to the logger.
func fail(err error) error {
	slog.Debug("command failed", "error", err)
	return fmt.Errorf("medgraph: %v", err)
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/retrievio"
	"github.com/poiesic/retrievio/actions"
	"github.com/poiesic/retrievio/agents"
	"github.com/poiesic/retrievio/config"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/document"
	"github.com/poiesic/retrievio/ingestion"
	"github.com/poiesic/retrievio/reembed"
	"github.com/poiesic/retrievio/search"
	"github.com/poiesic/retrievio/storage"
	"github.com/poiesic/retrievio/storage/badger"
)

// logLevel is set by setupLogger and reused when the log file is attached.
var logLevel = slog.LevelInfo

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "results",
			Aliases: []string{"n"},
			Usage:   "Number of results to return",
			Value:   search.DefaultResults,
		},
		&cli.Float64Flag{
			Name:    "min-relevance",
			Aliases: []string{"r"},
			Usage:   "Minimum relevance score (0-1)",
			Value:   search.DefaultMinRelevance,
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Restrict results to one document file name",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "retrievio",
		Usage: "Intelligent document processing and retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "Directory holding documents, processed files, logs and the vector database",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "chat-host",
				Usage: "Chat completion service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Chat model name",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Watch the documents directory and process new files",
				Action: watchCommand,
			},
			{
				Name:      "process",
				Usage:     "Process documents, or every supported document in a directory",
				ArgsUsage: "<file-or-dir>...",
				Action:    processCommand,
			},
			{
				Name:      "search",
				Usage:     "Search through processed documents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(queryFlags(), &cli.BoolFlag{
					Name:  "explain",
					Usage: "Print each search stage to stderr",
				}),
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about your documents",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     queryFlags(),
			},
			{
				Name:   "flows",
				Usage:  "List recorded processing flows",
				Action: flowsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
			},
			{
				Name:   "documents",
				Usage:  "List documents with stored chunks",
				Action: documentsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
			},
			{
				Name:      "document-info",
				Usage:     "Show chunk statistics for a stored document",
				ArgsUsage: "<file-name>",
				Action:    documentInfoCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
			},
			{
				Name:   "status",
				Usage:  "Show pending and processed document counts",
				Action: statusCommand,
			},
			{
				Name:      "engagement",
				Usage:     "Show the engagement analysis of a processed document",
				ArgsUsage: "<document>",
				Action:    engagementCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 64,
					},
				},
			},
		},
	}
}

// loadConfig reads RETRIEVIO_* variables and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	overrides := map[string]*string{
		"base-dir":        &cfg.BaseDir,
		"embedding-host":  &cfg.EmbeddingHost,
		"chat-host":       &cfg.ChatHost,
		"embedding-model": &cfg.EmbeddingModel,
		"chat-model":      &cfg.ChatModel,
	}
	for flag, target := range overrides {
		if c.IsSet(flag) {
			*target = c.String(flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession starts a session and attaches the log file. The returned
// function closes both.
func openSession(c *cli.Context) (*retrievio.Session, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	logFile, err := os.OpenFile(cfg.LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(c.App.ErrWriter, logFile), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	session, err := retrievio.NewSession(cfg, retrievio.WithLogger(logger))
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}
	return session, func() {
		if err := session.Close(); err != nil {
			logger.Error("error closing session", "err", err)
		}
		logFile.Close()
	}, nil
}

func watchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()

	if err := session.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Watching directory: %s\n", session.Config().WatchDir())
	fmt.Fprintln(c.App.Writer, "Press CTRL+C to stop...")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.App.Writer, "\nStopping...")
			return nil
		case n := <-session.Notifications():
			if n.Text != "" {
				fmt.Fprintf(c.App.Writer, "[%s] %s\n", n.From, n.Text)
			}
		}
	}
}

func processCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file or directory is required")
	}
	session, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()

	paths, err := expandDocuments(c.Args().Slice(), document.DefaultExtractor())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(c.App.Writer, "No supported documents found")
		return nil
	}

	failed := 0
	for _, path := range paths {
		res := session.Handle(c.Context, actions.Action{Name: actions.ProcessDocument, Input: path})
		if !res.Success {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "Failed to process %s: %s\n", filepath.Base(path), res.Error)
			continue
		}
		report := res.Result.(*ingestion.Report)
		fmt.Fprintf(c.App.Writer, "Processed %s: %d chunks in %s (flow %s)\n",
			report.Document, report.Chunks, report.Duration.Round(time.Millisecond), report.FlowID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

// expandDocuments replaces directories with the supported files they contain.
func expandDocuments(args []string, extractor *document.MultiExtractor) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := filepath.Join(arg, e.Name())
			if e.Type().IsRegular() && extractor.Supports(p) {
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

func queryFromFlags(c *cli.Context) (search.Query, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return search.Query{}, errors.New("a query is required")
	}
	return search.Query{
		Text:         text,
		NResults:     c.Int("results"),
		MinRelevance: c.Float64("min-relevance"),
		FileFilter:   c.String("file"),
	}, nil
}

func searchCommand(c *cli.Context) error {
	q, err := queryFromFlags(c)
	if err != nil {
		return err
	}
	session, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()

	var monitor search.SearchMonitor
	if c.Bool("explain") {
		monitor = &explainMonitor{w: c.App.ErrWriter}
	}
	results, err := session.Searcher().SearchWithMonitor(c.Context, q, monitor)
	if err != nil {
		return err
	}
	return printResults(c.App.Writer, q.Text, results, c.Bool("json"))
}

func printResults(w io.Writer, query string, results []core.SearchResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}
	fmt.Fprintf(w, "Searching for: %s\n", query)
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found")
		return nil
	}
	fmt.Fprintln(w, "\nSearch Results:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range results {
		fmt.Fprintf(w, "\n[%d] Relevance: %.2f%%\n", r.Rank, r.Relevance)
		fmt.Fprintf(w, "File: %s\n", r.File)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, r.Text)
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
	return nil
}

func askCommand(c *cli.Context) error {
	q, err := queryFromFlags(c)
	if err != nil {
		return err
	}
	session, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()

	answer, err := session.Ask(c.Context, q)
	if err != nil {
		return err
	}
	if answer.Error != "" {
		return fmt.Errorf("answering question: %s", answer.Error)
	}
	return printAnswer(c.App.Writer, q.Text, answer, c.Bool("json"))
}

func printAnswer(w io.Writer, question string, answer agents.Answer, asJSON bool) error {
	if asJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "Question: %s\n", question)
	fmt.Fprintln(w, "\nAnswer:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintln(w, answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(w, "- %s\n", s)
		}
	}
	return nil
}

// openDatabase opens the vector database without starting a session.
func openDatabase(c *cli.Context) (*badger.Backend, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	backend, err := badger.OpenBackend(cfg.VectorDBDir(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return backend, nil
}

func flowsCommand(c *cli.Context) error {
	backend, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	flows, err := badger.NewFlowRepository(backend).ListFlows(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, flows)
	}
	if len(flows) == 0 {
		fmt.Fprintln(c.App.Writer, "No flows recorded")
		return nil
	}
	for _, f := range flows {
		fmt.Fprintf(c.App.Writer, "%s  %-10s  %s  %s\n",
			f.ID, f.Status, f.UpdatedAt.Local().Format("2006-01-02 15:04:05"), filepath.Base(f.Subject))
	}
	return nil
}

func documentsCommand(c *cli.Context) error {
	backend, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	vectors, err := badger.NewVectorRepository(backend)
	if err != nil {
		return err
	}
	docs, err := storage.Documents(c.Context, vectors)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(c.App.Writer, "No documents found")
		return nil
	}
	fmt.Fprintln(c.App.Writer, "Processed Documents:")
	fmt.Fprintln(c.App.Writer, strings.Repeat("-", 20))
	for _, d := range docs {
		fmt.Fprintln(c.App.Writer, d.FileName)
	}
	return nil
}

func documentInfoCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("a document file name is required")
	}
	backend, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	vectors, err := badger.NewVectorRepository(backend)
	if err != nil {
		return err
	}
	info, err := storage.DocumentByName(c.Context, vectors, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document not found: %s", name)
	}
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, info)
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Document: %s\n", info.FileName)
	fmt.Fprintln(w, strings.Repeat("-", 20))
	fmt.Fprintf(w, "Number of chunks: %d\n", info.Chunks)
	fmt.Fprintf(w, "First chunk start: %d\n", info.FirstStart)
	fmt.Fprintf(w, "Last chunk end: %d\n", info.LastEnd)
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	extractor := document.DefaultExtractor()
	pending, err := countDocuments(cfg.WatchDir(), extractor)
	if err != nil {
		return err
	}
	processed, err := countDocuments(cfg.ProcessedDir(), extractor)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, "RetrievIO Status")
	fmt.Fprintln(w, strings.Repeat("-", 20))
	fmt.Fprintf(w, "Watch directory: %s\n", cfg.WatchDir())
	fmt.Fprintf(w, "Files pending: %d\n", pending)
	fmt.Fprintf(w, "Files processed: %d\n", processed)
	return nil
}

// countDocuments counts supported files directly inside dir. A missing
// directory counts as empty.
func countDocuments(dir string, extractor *document.MultiExtractor) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && extractor.Supports(e.Name()) {
			n++
		}
	}
	return n, nil
}

func engagementCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one document name is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	archive, err := document.NewArchive(cfg.ProcessedDir(), slog.Default())
	if err != nil {
		return err
	}

	name := c.Args().First()
	data, err := os.ReadFile(archive.EngagementPath(name))
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(c.App.Writer, "No engagement content found for: %s\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	var e agents.Engagement
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("reading engagement content: %w", err)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, e)
	}
	printEngagement(c.App.Writer, e)
	return nil
}

func printEngagement(w io.Writer, e agents.Engagement) {
	fmt.Fprintf(w, "\nDocument: %s\n", e.Document)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if e.Analysis == nil {
		fmt.Fprintln(w, e.Raw)
		return
	}
	a := e.Analysis
	fmt.Fprintf(w, "\nTopic: %s\n", a.Topic)
	fmt.Fprintf(w, "Overview: %s\n", a.Overview)
	fmt.Fprintln(w, "\nKey Concepts:")
	for _, k := range a.KeyConcepts {
		fmt.Fprintf(w, "- %s\n", k)
	}
	fmt.Fprintln(w, "\nSuggested Questions:")
	fmt.Fprintf(w, "Basic: %s\n", a.Questions.Basic)
	fmt.Fprintf(w, "Detailed: %s\n", a.Questions.Detailed)
	fmt.Fprintf(w, "Practical: %s\n", a.Questions.Practical)
	fmt.Fprintln(w, "\nFollow-up Topics:")
	for _, t := range a.FollowUp {
		fmt.Fprintf(w, "- %s\n", t)
	}
}

func reembedCommand(c *cli.Context) error {
	rc := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}
	if rc.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rc.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	session, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()
	rc.Backoff = session.Config().Backoff()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", session.Config().VectorDBDir())
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", session.Config().EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", session.Config().EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := session.Reembed(c.Context, rc, c.App.ErrWriter); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// explainMonitor prints each search stage.
type explainMonitor struct {
	w io.Writer
}

func (m *explainMonitor) Start(q search.Query) {
	fmt.Fprintf(m.w, "query %q (results %d, min relevance %.2f, file %q)\n", q.Text, q.NResults, q.MinRelevance, q.FileFilter)
}

func (m *explainMonitor) AfterEmbedding(dimensions int) {
	fmt.Fprintf(m.w, "embedded query: %d dimensions\n", dimensions)
}

func (m *explainMonitor) AfterVectorSearch(hits []*core.QueryHit) {
	fmt.Fprintf(m.w, "vector search: %d hits\n", len(hits))
}

func (m *explainMonitor) VerbatimHit(r core.SearchResult) {
	fmt.Fprintf(m.w, "  verbatim match: %s (%.2f%%)\n", r.File, r.Relevance)
}

func (m *explainMonitor) BelowThreshold(r core.SearchResult) {
	fmt.Fprintf(m.w, "  dropped: %s (%.2f%%)\n", r.File, r.Relevance)
}

func (m *explainMonitor) Finish(results []core.SearchResult) {
	fmt.Fprintf(m.w, "returning %d results\n", len(results))
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	switch levelStr {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errWriter, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	return nil
}

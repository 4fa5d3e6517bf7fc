// Command copticqa answers questions about a Coptic manuscript
// knowledge graph: load Turtle data, ask free-text questions, run
// literal searches, inspect the schema digest, or serve it all over
// HTTP.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sjhuskey/copticqa/internal/config"
	"github.com/sjhuskey/copticqa/internal/storage"
	"github.com/sjhuskey/copticqa/pkg/graph"
	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/schema"
	"github.com/sjhuskey/copticqa/pkg/store"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

var rootCmd = &cobra.Command{
	Use:   "copticqa",
	Short: "Question answering over a Coptic manuscript knowledge graph",
	Long: "copticqa loads a Coptic manuscript knowledge graph and answers\n" +
		"free-text questions by translating them into SPARQL, plus a\n" +
		"deterministic literal search that needs no language model.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(loadCmd, askCmd, searchCmd, schemaCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogPath != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// openGraph opens the store and, when it is empty or in-memory, loads
// the configured Turtle files into it.
func openGraph() (*graph.Graph, func() error, error) {
	var (
		st  store.Storage
		err error
	)
	if cfg.StorePath != "" {
		st, err = storage.NewBadgerStorage(cfg.StorePath)
	} else {
		st, err = storage.NewMemoryStorage()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	g := graph.New(store.NewTripleStore(st))

	count, err := g.Count()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if count == 0 {
		if err := loadSources(g); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	return g, st.Close, nil
}

func loadSources(g *graph.Graph) error {
	total := 0
	for _, path := range []string{cfg.OntologyPath, cfg.DataPath} {
		if path == "" {
			continue
		}
		n, err := g.LoadTurtleFile(path)
		if err != nil {
			return err
		}
		logger.Info("loaded turtle file", "path", path, "triples", n)
		total += n
	}
	if total == 0 {
		return fmt.Errorf("no triples loaded; check ontology-path and data-path")
	}
	return nil
}

func buildDigest(g *graph.Graph) (*schema.Digest, error) {
	digest, err := schema.Build(g, cfg.Prefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema digest: %w", err)
	}
	return digest, nil
}

func newPipeline(g *graph.Graph, digest *schema.Digest) (*qa.Pipeline, error) {
	gen, err := qa.NewAnthropicGenerator(cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	budget := qa.RowBudget{
		MaxRows:      cfg.AnswerRowBudget.MaxRows,
		MaxColumns:   cfg.AnswerRowBudget.MaxColumns,
		MaxTermBytes: cfg.AnswerRowBudget.MaxTermBytes,
	}
	return qa.NewPipeline(gen, g, digest, budget, logger), nil
}

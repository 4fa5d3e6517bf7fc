package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sjhuskey/copticqa/internal/server"
	"github.com/sjhuskey/copticqa/pkg/qa"
	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/schema"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Ingest the configured Turtle files into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StorePath == "" {
			return fmt.Errorf("load requires store-path; an in-memory store would be discarded on exit")
		}

		g, closeStore, err := openGraph()
		if err != nil {
			return err
		}
		defer closeStore()

		count, err := g.Count()
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Store loaded"))
		fmt.Printf("%d triples in %s\n", count, cfg.StorePath)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a free-text question about the graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		g, closeStore, err := openGraph()
		if err != nil {
			return err
		}
		defer closeStore()

		digest, err := buildDigest(g)
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(g, digest)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.AskTimeout)
		defer cancel()

		outcome := pipeline.Ask(ctx, question)
		printOutcome(outcome)
		if outcome.Err != nil {
			os.Exit(1)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Find literals containing a term, case-insensitively",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := strings.Join(args, " ")

		g, closeStore, err := openGraph()
		if err != nil {
			return err
		}
		defer closeStore()

		digest, err := buildDigest(g)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SearchTimeout)
		defer cancel()

		// Search needs no language model, so no generator is built.
		searcher := qa.NewSearcher(qa.NewExecutor(g))
		result := searcher.Search(ctx, term)
		if result.Err != nil {
			return result.Err
		}
		if result.Status == qa.StatusEmpty {
			fmt.Println(faintStyle.Render(qa.EmptyAnswer))
			return nil
		}
		printRows(result, digest)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema digest used to ground translation prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeStore, err := openGraph()
		if err != nil {
			return err
		}
		defer closeStore()

		digest, err := buildDigest(g)
		if err != nil {
			return err
		}
		fmt.Print(digest.Describe())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeStore, err := openGraph()
		if err != nil {
			return err
		}
		defer closeStore()

		digest, err := buildDigest(g)
		if err != nil {
			return err
		}
		pipeline, err := newPipeline(g, digest)
		if err != nil {
			return err
		}

		srv := server.New(qa.NewSession(pipeline), g, digest, cfg, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func printOutcome(outcome *qa.Outcome) {
	switch outcome.Kind {
	case qa.OutcomeAnswered:
		fmt.Println(answerStyle.Render(outcome.Answer))
	case qa.OutcomeNoResults:
		fmt.Println(faintStyle.Render(outcome.Answer))
	default:
		fmt.Println(errorStyle.Render(outcome.Message()))
	}

	if outcome.Query != "" {
		fmt.Println()
		fmt.Println(faintStyle.Render("Query:"))
		fmt.Println(faintStyle.Render(outcome.Query))
	}
}

func printRows(result *qa.ExecutionResult, digest *schema.Digest) {
	fmt.Println(titleStyle.Render(strings.Join(result.Variables, "\t")))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Variables))
		for i, name := range result.Variables {
			term, ok := row[name]
			if !ok {
				continue
			}
			cells[i] = displayTerm(term, digest)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Println(faintStyle.Render(fmt.Sprintf("%d rows", len(result.Rows))))
}

func displayTerm(term rdf.Term, digest *schema.Digest) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return digest.QName(t.IRI)
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		if t.Language != "" {
			return t.Value + " (@" + t.Language + ")"
		}
		return t.Value
	default:
		return term.String()
	}
}

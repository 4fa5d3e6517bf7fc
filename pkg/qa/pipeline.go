package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sjhuskey/copticqa/pkg/graph"
	"github.com/sjhuskey/copticqa/pkg/schema"
)

// OutcomeKind labels what happened to a question, one kind per branch
// of the error taxonomy.
type OutcomeKind int

const (
	// OutcomeAnswered means a populated result was composed into an answer.
	OutcomeAnswered OutcomeKind = iota + 1
	// OutcomeNoResults means the query ran and matched nothing.
	OutcomeNoResults
	// OutcomeTranslationFailed means no candidate query could be produced.
	OutcomeTranslationFailed
	// OutcomeQueryInvalid means both candidate queries failed to parse.
	OutcomeQueryInvalid
	// OutcomeExecutionFailed means a well-formed query could not be run.
	OutcomeExecutionFailed
	// OutcomeCompositionFailed means execution succeeded but answer
	// composition did not.
	OutcomeCompositionFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAnswered:
		return "answered"
	case OutcomeNoResults:
		return "no_results"
	case OutcomeTranslationFailed:
		return "translation_failed"
	case OutcomeQueryInvalid:
		return "query_invalid"
	case OutcomeExecutionFailed:
		return "execution_failed"
	case OutcomeCompositionFailed:
		return "composition_failed"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one question or search.
type Outcome struct {
	Kind   OutcomeKind
	Answer string
	Query  string // the last attempted query, when one exists
	Result *ExecutionResult
	Err    error
}

// Message renders the outcome for the user. Every kind produces a
// distinct, honest message; failures never masquerade as empty results.
func (o *Outcome) Message() string {
	switch o.Kind {
	case OutcomeAnswered, OutcomeNoResults:
		return o.Answer
	case OutcomeTranslationFailed:
		return "Could not translate the question into a query. Try rephrasing it."
	case OutcomeQueryInvalid:
		return fmt.Sprintf("The generated query was not valid SPARQL, even after one correction attempt:\n%s", o.Query)
	case OutcomeExecutionFailed:
		return fmt.Sprintf("The query could not be executed: %v", o.Err)
	case OutcomeCompositionFailed:
		return "The query succeeded but the answer could not be composed. The raw results are available."
	default:
		return "Something went wrong."
	}
}

// Pipeline wires the translation, execution, and composition stages.
type Pipeline struct {
	translator *Translator
	executor   *Executor
	composer   *Composer
	searcher   *Searcher
	logger     *slog.Logger
}

// NewPipeline assembles the full question-answering pipeline over a
// loaded graph and its digest.
func NewPipeline(gen Generator, g *graph.Graph, digest *schema.Digest, budget RowBudget, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	executor := NewExecutor(g)
	return &Pipeline{
		translator: NewTranslator(gen, digest),
		executor:   executor,
		composer:   NewComposer(gen, budget),
		searcher:   NewSearcher(executor),
		logger:     logger,
	}
}

// Ask answers a free-text question. A candidate query that fails to
// parse earns exactly one retranslation; a second parse failure is
// reported, not retried.
func (p *Pipeline) Ask(ctx context.Context, question string) *Outcome {
	start := time.Now()

	query, err := p.translator.Translate(ctx, question)
	if err != nil {
		p.logger.Warn("translation failed", "question", question, "error", err)
		return &Outcome{Kind: OutcomeTranslationFailed, Err: err}
	}
	p.logger.Debug("translated question", "question", question, "query", query)

	result := p.executor.Run(ctx, query)
	if result.Err != nil && errors.Is(result.Err, graph.ErrQuerySyntax) {
		p.logger.Info("candidate query rejected, retranslating", "error", result.Err)

		query, err = p.translator.Retranslate(ctx, question, query, result.Err)
		if err != nil {
			return &Outcome{Kind: OutcomeTranslationFailed, Err: err}
		}
		result = p.executor.Run(ctx, query)
		if result.Err != nil && errors.Is(result.Err, graph.ErrQuerySyntax) {
			fault := &ExecutionFault{Query: query, Err: result.Err}
			return &Outcome{Kind: OutcomeQueryInvalid, Query: query, Result: result, Err: fault}
		}
	}
	if result.Err != nil {
		fault := &ExecutionFault{Query: query, Err: result.Err}
		p.logger.Error("query execution failed", "query", query, "error", result.Err)
		return &Outcome{Kind: OutcomeExecutionFailed, Query: query, Result: result, Err: fault}
	}

	answer, err := p.composer.Compose(ctx, question, result)
	if err != nil {
		return &Outcome{Kind: OutcomeCompositionFailed, Query: query, Result: result, Err: err}
	}

	kind := OutcomeAnswered
	if result.Status == StatusEmpty {
		kind = OutcomeNoResults
	}
	p.logger.Info("question answered",
		"kind", kind.String(),
		"rows", len(result.Rows),
		"duration", time.Since(start))

	return &Outcome{Kind: kind, Answer: answer, Query: query, Result: result}
}

// Search runs the deterministic literal search. No generation call is
// involved on this path.
func (p *Pipeline) Search(ctx context.Context, term string) *Outcome {
	result := p.searcher.Search(ctx, term)
	query := BuildSearchQuery(term)

	if result.Err != nil {
		fault := &ExecutionFault{Query: query, Err: result.Err}
		return &Outcome{Kind: OutcomeExecutionFailed, Query: query, Result: result, Err: fault}
	}
	if result.Status == StatusEmpty {
		return &Outcome{Kind: OutcomeNoResults, Answer: EmptyAnswer, Query: query, Result: result}
	}
	return &Outcome{Kind: OutcomeAnswered, Query: query, Result: result}
}

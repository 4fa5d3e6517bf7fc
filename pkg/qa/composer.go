package qa

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sjhuskey/copticqa/pkg/rdf"
)

// EmptyAnswer is the fixed answer for queries that matched nothing. It
// is returned deterministically, without a generation call.
const EmptyAnswer = "No results found."

// RowBudget bounds how much of a result set is serialized into the
// composition prompt.
type RowBudget struct {
	MaxRows      int
	MaxColumns   int
	MaxTermBytes int
}

// DefaultRowBudget keeps composition prompts small enough for fast,
// cheap generation while covering typical catalogue answers.
var DefaultRowBudget = RowBudget{
	MaxRows:      25,
	MaxColumns:   8,
	MaxTermBytes: 256,
}

// Composer turns a populated execution result into a natural-language
// answer.
type Composer struct {
	gen    Generator
	budget RowBudget
}

func NewComposer(gen Generator, budget RowBudget) *Composer {
	if budget.MaxRows <= 0 {
		budget = DefaultRowBudget
	}
	return &Composer{gen: gen, budget: budget}
}

// Compose produces the answer for a classified result. Empty results
// short-circuit to EmptyAnswer; only populated results reach the
// language model.
func (c *Composer) Compose(ctx context.Context, question string, result *ExecutionResult) (string, error) {
	switch result.Status {
	case StatusEmpty:
		return EmptyAnswer, nil
	case StatusPopulated:
		// continue below
	default:
		return "", &CompositionError{Err: fmt.Errorf("cannot compose from status %s", result.Status)}
	}

	prompt := c.buildPrompt(question, result)
	answer, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", &CompositionError{Err: err}
	}
	return strings.TrimSpace(answer), nil
}

func (c *Composer) buildPrompt(question string, result *ExecutionResult) string {
	var b strings.Builder

	b.WriteString("You answer questions about Coptic manuscripts from query results.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Query results:\n")
	b.WriteString(c.serializeRows(result))
	b.WriteString("\nAnswer the question concisely in plain prose using only the ")
	b.WriteString("results above. Mention when the results were truncated.\n")

	return b.String()
}

// serializeRows renders the result as a tab-separated table within the
// row budget, noting anything truncated.
func (c *Composer) serializeRows(result *ExecutionResult) string {
	variables := result.Variables
	droppedColumns := 0
	if len(variables) > c.budget.MaxColumns {
		droppedColumns = len(variables) - c.budget.MaxColumns
		variables = variables[:c.budget.MaxColumns]
	}

	var b strings.Builder
	b.WriteString(strings.Join(variables, "\t") + "\n")

	rows := result.Rows
	droppedRows := 0
	if len(rows) > c.budget.MaxRows {
		droppedRows = len(rows) - c.budget.MaxRows
		rows = rows[:c.budget.MaxRows]
	}

	for _, row := range rows {
		values := make([]string, len(variables))
		for i, name := range variables {
			term, ok := row[name]
			if !ok {
				continue
			}
			values[i] = c.serializeTerm(term)
		}
		b.WriteString(strings.Join(values, "\t") + "\n")
	}

	if droppedRows > 0 {
		fmt.Fprintf(&b, "(%d more rows omitted)\n", droppedRows)
	}
	if droppedColumns > 0 {
		fmt.Fprintf(&b, "(%d more columns omitted)\n", droppedColumns)
	}

	return b.String()
}

func (c *Composer) serializeTerm(term rdf.Term) string {
	var s string
	switch t := term.(type) {
	case *rdf.NamedNode:
		s = t.IRI
	case *rdf.BlankNode:
		s = "_:" + t.ID
	case *rdf.Literal:
		s = t.Value
		if t.Language != "" {
			s += " (@" + t.Language + ")"
		}
	default:
		s = fmt.Sprintf("%v", term)
	}

	if len(s) > c.budget.MaxTermBytes {
		cut := c.budget.MaxTermBytes
		// Back up to a rune boundary so truncation never splits a
		// multibyte character.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

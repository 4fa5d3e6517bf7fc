package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/sjhuskey/copticqa/pkg/schema"
)

// Translator turns a free-text question into a candidate SPARQL query,
// grounding the prompt in the schema digest so generated queries use
// IRIs that actually exist in the graph.
type Translator struct {
	gen    Generator
	digest *schema.Digest
}

func NewTranslator(gen Generator, digest *schema.Digest) *Translator {
	return &Translator{gen: gen, digest: digest}
}

// Translate produces a normalized candidate query for the question.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	raw, err := t.gen.Generate(ctx, t.buildPrompt(question, ""))
	if err != nil {
		return "", &TranslationError{Question: question, Err: err}
	}
	return NormalizeSPARQL(raw), nil
}

// Retranslate asks for a corrected query after the previous candidate
// failed to parse. The pipeline calls this at most once per question.
func (t *Translator) Retranslate(ctx context.Context, question, previous string, parseErr error) (string, error) {
	note := fmt.Sprintf(
		"Your previous attempt was not valid SPARQL.\n\nPrevious query:\n%s\n\nParser error: %v\n\nProduce a corrected query.",
		previous, parseErr,
	)
	raw, err := t.gen.Generate(ctx, t.buildPrompt(question, note))
	if err != nil {
		return "", &TranslationError{Question: question, Err: err}
	}
	return NormalizeSPARQL(raw), nil
}

func (t *Translator) buildPrompt(question, note string) string {
	var b strings.Builder

	b.WriteString("You translate questions about Coptic manuscripts into SPARQL queries.\n\n")
	b.WriteString(t.digest.Describe())
	b.WriteString("\nRules:\n")
	b.WriteString("- Use only classes, properties, and prefixes listed above.\n")
	b.WriteString("- Output exactly one SELECT or ASK query and nothing else.\n")
	b.WriteString("- Include the PREFIX declarations the query needs.\n")
	b.WriteString("- No markdown, no code fences, no explanation.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	if note != "" {
		b.WriteString("\n" + note + "\n")
	}

	return b.String()
}

// NormalizeSPARQL cleans up common model-output artifacts: markdown
// code fences (with or without a language tag), stray backticks, and
// bare WHERE clauses missing their SELECT head.
func NormalizeSPARQL(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Drop a language tag such as "sparql" on the fence line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			first := strings.TrimSpace(text[:idx])
			if first != "" && !strings.ContainsAny(first, " \t{") {
				text = text[idx+1:]
			}
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	text = strings.Trim(text, "`")
	text = strings.TrimSpace(text)

	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "WHERE") || strings.HasPrefix(text, "{") {
		text = "SELECT *\n" + text
	}

	return text
}

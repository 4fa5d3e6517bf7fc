package evaluator

import (
	"testing"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

// parseFilterExpr extracts the expression from "SELECT * WHERE { ?s ?p ?o . FILTER (...) }".
func parseFilterExpr(t *testing.T, filter string) parser.Expression {
	t.Helper()
	query, err := parser.NewParser("SELECT * WHERE { ?s ?p ?o . FILTER " + filter + " }").Parse()
	if err != nil {
		t.Fatalf("failed to parse filter %q: %v", filter, err)
	}
	filters := query.Select.Where.Filters
	if len(filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(filters))
	}
	return filters[0].Expression
}

func evalBool(t *testing.T, filter string, binding *store.Binding) bool {
	t.Helper()
	e := NewEvaluator()
	result, err := e.Evaluate(parseFilterExpr(t, filter), binding)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", filter, err)
	}
	ebv, err := e.EffectiveBooleanValue(result)
	if err != nil {
		t.Fatalf("EBV of %q failed: %v", filter, err)
	}
	return ebv
}

func TestEvaluate_Comparisons(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["age"] = rdf.NewIntegerLiteral(42)

	tests := []struct {
		filter   string
		expected bool
	}{
		{"(?age = 42)", true},
		{"(?age != 42)", false},
		{"(?age > 40)", true},
		{"(?age >= 43)", false},
		{"(?age < 100)", true},
		{"(?age <= 41)", false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.filter, binding); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.filter, tt.expected, got)
		}
	}
}

func TestEvaluate_NumericValueEquality(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["x"] = rdf.NewDoubleLiteral(42.0)

	if !evalBool(t, "(?x = 42)", binding) {
		t.Error("double 42.0 should equal integer 42 by value")
	}
}

func TestEvaluate_LogicalOperators(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["n"] = rdf.NewIntegerLiteral(5)

	if !evalBool(t, "(?n > 1 && ?n < 10)", binding) {
		t.Error("conjunction should hold")
	}
	if evalBool(t, "(?n > 10 || ?n < 3)", binding) {
		t.Error("disjunction should not hold")
	}
	if !evalBool(t, "(!(?n = 6))", binding) {
		t.Error("negation should hold")
	}
}

func TestEvaluate_OrToleratesOneError(t *testing.T) {
	// ?missing is unbound; the other branch is true, so the OR succeeds.
	binding := store.NewBinding()
	binding.Vars["n"] = rdf.NewIntegerLiteral(5)

	if !evalBool(t, "(?missing > 1 || ?n = 5)", binding) {
		t.Error("OR should be true when one branch errors and the other is true")
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["n"] = rdf.NewIntegerLiteral(6)

	if !evalBool(t, "(?n * 2 = 12)", binding) {
		t.Error("multiplication failed")
	}
	if !evalBool(t, "(?n + 1 > ?n)", binding) {
		t.Error("addition failed")
	}

	e := NewEvaluator()
	_, err := e.Evaluate(parseFilterExpr(t, "(?n / 0 = 1)"), binding)
	if err == nil {
		t.Error("division by zero should be an error")
	}
}

func TestEvaluate_SearchTemplateFilter(t *testing.T) {
	// The shape used by the literal search fallback.
	filter := `(isLiteral(?object) && CONTAINS(LCASE(STR(?object)), "monastery"))`

	binding := store.NewBinding()
	binding.Vars["object"] = rdf.NewLiteral("The White Monastery")
	if !evalBool(t, filter, binding) {
		t.Error("case-insensitive literal match should hold")
	}

	binding.Vars["object"] = rdf.NewNamedNode("http://example.org/Monastery")
	if evalBool(t, filter, binding) {
		t.Error("IRIs must not match a literal search")
	}

	binding.Vars["object"] = rdf.NewLiteral("unrelated")
	if evalBool(t, filter, binding) {
		t.Error("non-matching literal should not match")
	}
}

func TestEvaluate_StringFunctions(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["s"] = rdf.NewLiteral("Shenoute of Atripe")

	tests := []struct {
		filter   string
		expected bool
	}{
		{`(STRSTARTS(?s, "Shenoute"))`, true},
		{`(STRENDS(?s, "Atripe"))`, true},
		{`(CONTAINS(?s, "of"))`, true},
		{`(STRLEN(?s) = 18)`, true},
		{`(UCASE(?s) = "SHENOUTE OF ATRIPE")`, true},
		{`(SUBSTR(?s, 1, 8) = "Shenoute")`, true},
		{`(REGEX(?s, "^shen", "i"))`, true},
		{`(REGEX(?s, "^shen"))`, false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.filter, binding); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.filter, tt.expected, got)
		}
	}
}

func TestEvaluate_TermPredicates(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["iri"] = rdf.NewNamedNode("http://example.org/m1")
	binding.Vars["lit"] = rdf.NewLiteral("text")
	binding.Vars["num"] = rdf.NewIntegerLiteral(3)

	tests := []struct {
		filter   string
		expected bool
	}{
		{"(isIRI(?iri))", true},
		{"(isIRI(?lit))", false},
		{"(isLiteral(?lit))", true},
		{"(isNumeric(?num))", true},
		{"(isNumeric(?lit))", false},
		{"(BOUND(?iri))", true},
		{"(BOUND(?nope))", false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.filter, binding); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.filter, tt.expected, got)
		}
	}
}

func TestEvaluate_LangFunctions(t *testing.T) {
	binding := store.NewBinding()
	binding.Vars["title"] = rdf.NewLiteralWithLanguage("ⲉⲩⲁⲅⲅⲉⲗⲓⲟⲛ", "cop")

	if !evalBool(t, `(LANG(?title) = "cop")`, binding) {
		t.Error("LANG should return the language tag")
	}
	if !evalBool(t, `(LANGMATCHES(LANG(?title), "*"))`, binding) {
		t.Error("LANGMATCHES * should match any tagged literal")
	}
}

func TestEvaluate_UnboundVariableIsError(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate(parseFilterExpr(t, "(?ghost = 1)"), store.NewBinding())
	if err == nil {
		t.Error("evaluating an unbound variable should be an error")
	}
}

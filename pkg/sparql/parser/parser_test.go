package parser_test

import (
	"strings"
	"testing"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
)

func mustParse(t *testing.T, input string) *parser.Query {
	t.Helper()
	query, err := parser.NewParser(input).Parse()
	if err != nil {
		t.Fatalf("failed to parse %q: %v", input, err)
	}
	return query
}

func TestParseSimpleSelect(t *testing.T) {
	query := mustParse(t, `SELECT ?s ?p ?o WHERE { ?s ?p ?o . }`)

	if query.QueryType != parser.QueryTypeSelect {
		t.Fatalf("expected SELECT query, got %v", query.QueryType)
	}
	sel := query.Select
	if len(sel.Projection) != 3 {
		t.Fatalf("expected 3 projection items, got %d", len(sel.Projection))
	}
	if sel.Projection[0].Name() != "s" || sel.Projection[2].Name() != "o" {
		t.Errorf("unexpected projection: %v, %v", sel.Projection[0].Name(), sel.Projection[2].Name())
	}
	if len(sel.Where.Patterns) != 1 {
		t.Fatalf("expected 1 triple pattern, got %d", len(sel.Where.Patterns))
	}
	tp := sel.Where.Patterns[0]
	if !tp.Subject.IsVariable() || !tp.Predicate.IsVariable() || !tp.Object.IsVariable() {
		t.Error("expected all positions to be variables")
	}
}

func TestParseSelectStar(t *testing.T) {
	query := mustParse(t, `SELECT * WHERE { ?s ?p ?o . }`)

	if query.Select.Projection != nil {
		t.Errorf("expected nil projection for SELECT *, got %v", query.Select.Projection)
	}
}

func TestParsePrefixes(t *testing.T) {
	query := mustParse(t, `
		PREFIX copt: <http://copticscriptorium.org/ontology#>
		PREFIX dcterms: <http://purl.org/dc/terms/>
		SELECT ?title WHERE { ?ms dcterms:title ?title . ?ms a copt:Manuscript . }
	`)

	patterns := query.Select.Where.Patterns
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}

	pred, ok := patterns[0].Predicate.Term.(*rdf.NamedNode)
	if !ok || pred.IRI != "http://purl.org/dc/terms/title" {
		t.Errorf("unexpected predicate: %v", patterns[0].Predicate.Term)
	}

	// The 'a' keyword expands to rdf:type.
	typePred, ok := patterns[1].Predicate.Term.(*rdf.NamedNode)
	if !ok || typePred.IRI != rdf.RDFType.IRI {
		t.Errorf("expected rdf:type predicate, got %v", patterns[1].Predicate.Term)
	}

	obj, ok := patterns[1].Object.Term.(*rdf.NamedNode)
	if !ok || obj.IRI != "http://copticscriptorium.org/ontology#Manuscript" {
		t.Errorf("unexpected object: %v", patterns[1].Object.Term)
	}
}

func TestParsePropertyList(t *testing.T) {
	query := mustParse(t, `
		PREFIX copt: <http://copticscriptorium.org/ontology#>
		SELECT ?s WHERE {
			?s a copt:Manuscript ;
			   copt:heldBy ?repo , ?other .
		}
	`)

	patterns := query.Select.Where.Patterns
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
	for _, tp := range patterns {
		if !tp.Subject.IsVariable() || tp.Subject.Variable.Name != "s" {
			t.Errorf("expected all patterns to share subject ?s, got %v", tp.Subject)
		}
	}
	if patterns[1].Predicate.Term.(*rdf.NamedNode).IRI != patterns[2].Predicate.Term.(*rdf.NamedNode).IRI {
		t.Error("expected comma-separated objects to share the predicate")
	}
}

func TestParseLiterals(t *testing.T) {
	query := mustParse(t, `
		PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
		SELECT ?s WHERE {
			?s ?a "Shenoute"@cop .
			?s ?b "112"^^xsd:integer .
			?s ?c 42 .
			?s ?d true .
		}
	`)

	patterns := query.Select.Where.Patterns

	lang := patterns[0].Object.Term.(*rdf.Literal)
	if lang.Value != "Shenoute" || lang.Language != "cop" {
		t.Errorf("unexpected language literal: %v", lang)
	}

	typed := patterns[1].Object.Term.(*rdf.Literal)
	if typed.Datatype == nil || typed.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("unexpected typed literal: %v", typed)
	}

	num := patterns[2].Object.Term.(*rdf.Literal)
	if num.Value != "42" || num.Datatype.IRI != rdf.XSDInteger.IRI {
		t.Errorf("unexpected numeric literal: %v", num)
	}

	boolean := patterns[3].Object.Term.(*rdf.Literal)
	if boolean.Value != "true" || boolean.Datatype.IRI != rdf.XSDBoolean.IRI {
		t.Errorf("unexpected boolean literal: %v", boolean)
	}
}

func TestParseBooleanObjects(t *testing.T) {
	query := mustParse(t, `SELECT ?s WHERE { ?s ?p false . ?s ?q true }`)

	patterns := query.Select.Where.Patterns
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	for i, want := range []string{"false", "true"} {
		lit, ok := patterns[i].Object.Term.(*rdf.Literal)
		if !ok || lit.Value != want || lit.Datatype.IRI != rdf.XSDBoolean.IRI {
			t.Errorf("pattern %d: expected boolean %s, got %v", i, want, patterns[i].Object.Term)
		}
	}

	// A prefix label that happens to read "true" is still a prefixed name.
	query = mustParse(t, `
		PREFIX true: <http://example.org/t#>
		SELECT ?s WHERE { ?s ?p true:Thing . }
	`)
	obj, ok := query.Select.Where.Patterns[0].Object.Term.(*rdf.NamedNode)
	if !ok || obj.IRI != "http://example.org/t#Thing" {
		t.Errorf("expected prefixed name object, got %v", query.Select.Where.Patterns[0].Object.Term)
	}
}

func TestParseFilter(t *testing.T) {
	query := mustParse(t, `
		SELECT ?s WHERE {
			?s ?p ?n .
			FILTER (?n > 100)
		}
	`)

	filters := query.Select.Where.Filters
	if len(filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(filters))
	}
	bin, ok := filters[0].Expression.(*parser.BinaryExpression)
	if !ok || bin.Operator != parser.OpGreaterThan {
		t.Errorf("unexpected filter expression: %#v", filters[0].Expression)
	}
}

func TestParseSearchTemplate(t *testing.T) {
	query := mustParse(t, `SELECT ?subject ?predicate ?object
WHERE {
  ?subject ?predicate ?object .
  FILTER (isLiteral(?object) && CONTAINS(LCASE(STR(?object)), "paul the hermit"))
}`)

	sel := query.Select
	if len(sel.Projection) != 3 || len(sel.Where.Patterns) != 1 || len(sel.Where.Filters) != 1 {
		t.Fatalf("unexpected query shape: %d projections, %d patterns, %d filters",
			len(sel.Projection), len(sel.Where.Patterns), len(sel.Where.Filters))
	}
	and, ok := sel.Where.Filters[0].Expression.(*parser.BinaryExpression)
	if !ok || and.Operator != parser.OpAnd {
		t.Fatalf("expected top-level AND, got %#v", sel.Where.Filters[0].Expression)
	}
	left, ok := and.Left.(*parser.FunctionCallExpression)
	if !ok || left.Function != "ISLITERAL" {
		t.Errorf("expected isLiteral call, got %#v", and.Left)
	}
}

func TestParseOptionalAndUnion(t *testing.T) {
	query := mustParse(t, `
		PREFIX copt: <http://copticscriptorium.org/ontology#>
		SELECT ?x WHERE {
			?x a copt:Manuscript .
			OPTIONAL { ?x copt:heldBy ?repo . }
			{ ?x copt:script copt:sahidic . } UNION { ?x copt:script copt:bohairic . }
		}
	`)

	children := query.Select.Where.Children
	if len(children) != 2 {
		t.Fatalf("expected 2 child groups, got %d", len(children))
	}
	if children[0].Type != parser.GraphPatternTypeOptional {
		t.Errorf("expected OPTIONAL child, got %v", children[0].Type)
	}
	if children[1].Type != parser.GraphPatternTypeUnion || len(children[1].Children) != 2 {
		t.Errorf("expected UNION with 2 branches, got %v with %d", children[1].Type, len(children[1].Children))
	}
}

func TestParseSolutionModifiers(t *testing.T) {
	query := mustParse(t, `
		SELECT DISTINCT ?type (COUNT(?s) AS ?n) WHERE { ?s ?p ?type . }
		GROUP BY ?type
		ORDER BY DESC(?n)
		LIMIT 10 OFFSET 5
	`)

	sel := query.Select
	if !sel.Distinct {
		t.Error("expected DISTINCT")
	}
	if len(sel.GroupBy) != 1 || sel.GroupBy[0].Name != "type" {
		t.Errorf("unexpected GROUP BY: %v", sel.GroupBy)
	}
	if len(sel.OrderBy) != 1 || sel.OrderBy[0].Ascending {
		t.Errorf("unexpected ORDER BY: %v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Errorf("unexpected LIMIT: %v", sel.Limit)
	}
	if sel.Offset == nil || *sel.Offset != 5 {
		t.Errorf("unexpected OFFSET: %v", sel.Offset)
	}

	agg := sel.Projection[1].Aggregate
	if agg == nil || agg.Function != "COUNT" || agg.As.Name != "n" {
		t.Errorf("unexpected aggregate: %#v", agg)
	}
}

func TestParseCountDistinct(t *testing.T) {
	query := mustParse(t, `SELECT (COUNT(DISTINCT ?author) AS ?n) WHERE { ?w ?p ?author . }`)

	agg := query.Select.Projection[0].Aggregate
	if agg == nil || !agg.Distinct {
		t.Errorf("expected DISTINCT aggregate, got %#v", agg)
	}
}

func TestParseAsk(t *testing.T) {
	query := mustParse(t, `
		PREFIX copt: <http://copticscriptorium.org/ontology#>
		ASK { copt:ms1 a copt:Manuscript . }
	`)

	if query.QueryType != parser.QueryTypeAsk {
		t.Fatalf("expected ASK query, got %v", query.QueryType)
	}
	if len(query.Ask.Where.Patterns) != 1 {
		t.Errorf("expected 1 pattern, got %d", len(query.Ask.Where.Patterns))
	}
}

func TestParseComments(t *testing.T) {
	query := mustParse(t, `
		# find every manuscript
		SELECT ?s WHERE {
			?s ?p ?o . # any triple
		}
	`)

	if len(query.Select.Where.Patterns) != 1 {
		t.Errorf("expected 1 pattern, got %d", len(query.Select.Where.Patterns))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown form", `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`},
		{"unclosed brace", `SELECT ?s WHERE { ?s ?p ?o .`},
		{"undefined prefix", `SELECT ?s WHERE { ?s copt:heldBy ?o . }`},
		{"missing projection", `SELECT WHERE { ?s ?p ?o . }`},
		{"trailing content", `SELECT ?s WHERE { ?s ?p ?o . } garbage`},
		{"bad aggregate star", `SELECT (SUM(*) AS ?n) WHERE { ?s ?p ?o . }`},
		{"unclosed literal", `SELECT ?s WHERE { ?s ?p "open . }`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.NewParser(tc.input).Parse()
			if err == nil {
				t.Errorf("expected parse error for %q", tc.input)
			}
		})
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	query := mustParse(t, `select ?s where { ?s ?p ?o . } limit 3`)

	if query.Select.Limit == nil || *query.Select.Limit != 3 {
		t.Errorf("unexpected LIMIT: %v", query.Select.Limit)
	}
}

func TestParseErrorMentionsPosition(t *testing.T) {
	_, err := parser.NewParser(`SELECT ?s WHERE { ?s ?p @ }`).Parse()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "position") && !strings.Contains(err.Error(), "unexpected") {
		t.Errorf("expected descriptive error, got %v", err)
	}
}

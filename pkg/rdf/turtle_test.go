package rdf

import (
	"testing"
)

func getIRI(t Term) string {
	if nn, ok := t.(*NamedNode); ok {
		return nn.IRI
	}
	return ""
}

func TestTurtleParser_SimpleTriple(t *testing.T) {
	input := `<http://example.org/m1> <http://example.org/title> "Gospel of Thomas" .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("Expected 1 triple, got %d", len(triples))
	}
	if getIRI(triples[0].Subject) != "http://example.org/m1" {
		t.Errorf("Wrong subject: %s", getIRI(triples[0].Subject))
	}
	lit, ok := triples[0].Object.(*Literal)
	if !ok {
		t.Fatalf("Expected literal object, got %T", triples[0].Object)
	}
	if lit.Value != "Gospel of Thomas" {
		t.Errorf("Wrong object value: %s", lit.Value)
	}
}

func TestTurtleParser_PrefixedNames(t *testing.T) {
	input := `@prefix copt: <http://example.org/coptic#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
copt:m1 rdfs:label "Codex I" .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("Expected 1 triple, got %d", len(triples))
	}
	if getIRI(triples[0].Subject) != "http://example.org/coptic#m1" {
		t.Errorf("Wrong subject: %s", getIRI(triples[0].Subject))
	}
	if getIRI(triples[0].Predicate) != "http://www.w3.org/2000/01/rdf-schema#label" {
		t.Errorf("Wrong predicate: %s", getIRI(triples[0].Predicate))
	}
}

func TestTurtleParser_AKeyword(t *testing.T) {
	input := `@prefix copt: <http://example.org/coptic#> .
copt:m1 a copt:Manuscript .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("Expected 1 triple, got %d", len(triples))
	}
	if getIRI(triples[0].Predicate) != RDFType.IRI {
		t.Errorf("'a' should expand to rdf:type, got %s", getIRI(triples[0].Predicate))
	}
	if getIRI(triples[0].Object) != "http://example.org/coptic#Manuscript" {
		t.Errorf("Wrong object: %s", getIRI(triples[0].Object))
	}
}

func TestTurtleParser_PropertyLists(t *testing.T) {
	input := `@prefix : <http://example.org/> .
:m1 a :Manuscript ;
    :title "Apocryphon of John", "Secret Book of John" ;
    :folios 32 .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 4 {
		t.Fatalf("Expected 4 triples, got %d", len(triples))
	}
	for _, tr := range triples {
		if getIRI(tr.Subject) != "http://example.org/m1" {
			t.Errorf("All triples should share subject, got %s", getIRI(tr.Subject))
		}
	}
	lit, ok := triples[3].Object.(*Literal)
	if !ok || lit.Value != "32" || lit.Datatype.IRI != XSDInteger.IRI {
		t.Errorf("Expected integer literal 32, got %v", triples[3].Object)
	}
}

func TestTurtleParser_TrailingSemicolon(t *testing.T) {
	input := `@prefix : <http://example.org/> .
:s :p :o ; .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("Expected 1 triple, got %d", len(triples))
	}
}

func TestTurtleParser_LanguageAndDatatype(t *testing.T) {
	input := `@prefix : <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
:m1 :title "ⲡⲉⲩⲁⲅⲅⲉⲗⲓⲟⲛ"@cop ;
    :dated "0350"^^xsd:integer .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("Expected 2 triples, got %d", len(triples))
	}

	title := triples[0].Object.(*Literal)
	if title.Language != "cop" {
		t.Errorf("Expected language tag 'cop', got %q", title.Language)
	}
	dated := triples[1].Object.(*Literal)
	if dated.Datatype == nil || dated.Datatype.IRI != XSDInteger.IRI {
		t.Errorf("Expected xsd:integer datatype, got %v", dated.Datatype)
	}
}

func TestTurtleParser_EscapesAndComments(t *testing.T) {
	input := `# ontology fragment
@prefix : <http://example.org/> .
:m1 :note "line one\nsaid \"quoted\"" . # trailing comment`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	lit := triples[0].Object.(*Literal)
	expected := "line one\nsaid \"quoted\""
	if lit.Value != expected {
		t.Errorf("Expected %q, got %q", expected, lit.Value)
	}
}

func TestTurtleParser_BlankNodes(t *testing.T) {
	input := `@prefix : <http://example.org/> .
_:b1 :partOf :m1 .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	bn, ok := triples[0].Subject.(*BlankNode)
	if !ok {
		t.Fatalf("Expected blank node subject, got %T", triples[0].Subject)
	}
	if bn.ID != "b1" {
		t.Errorf("Wrong blank node ID: %s", bn.ID)
	}
}

func TestTurtleParser_NumbersAndBooleans(t *testing.T) {
	input := `@prefix : <http://example.org/> .
:m1 :folios 32 ;
    :width 14.5 ;
    :digitized true .`

	triples, err := NewTurtleParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(triples) != 3 {
		t.Fatalf("Expected 3 triples, got %d", len(triples))
	}
	width := triples[1].Object.(*Literal)
	if width.Datatype.IRI != XSDDouble.IRI {
		t.Errorf("Expected double datatype for 14.5, got %v", width.Datatype)
	}
	dig := triples[2].Object.(*Literal)
	if dig.Value != "true" || dig.Datatype.IRI != XSDBoolean.IRI {
		t.Errorf("Expected boolean true, got %v", dig)
	}
}

func TestTurtleParser_UndefinedPrefix(t *testing.T) {
	input := `nope:s <http://example.org/p> <http://example.org/o> .`

	_, err := NewTurtleParser(input).Parse()
	if err == nil {
		t.Fatal("Expected error for undefined prefix")
	}
}

func TestTurtleParser_UnclosedLiteral(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "never closed .`

	_, err := NewTurtleParser(input).Parse()
	if err == nil {
		t.Fatal("Expected error for unclosed literal")
	}
}

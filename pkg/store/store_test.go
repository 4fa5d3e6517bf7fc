package store_test

import (
	"testing"

	"github.com/sjhuskey/copticqa/internal/storage"
	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/store"
)

func newTestStore(t *testing.T) *store.TripleStore {
	t.Helper()
	st, err := storage.NewMemoryStorage()
	if err != nil {
		t.Fatalf("NewMemoryStorage failed: %v", err)
	}
	ts := store.NewTripleStore(st)
	t.Cleanup(func() { ts.Close() })
	return ts
}

func collectTriples(t *testing.T, it store.TripleIterator) []*rdf.Triple {
	t.Helper()
	defer it.Close()

	var triples []*rdf.Triple
	for it.Next() {
		tr, err := it.Triple()
		if err != nil {
			t.Fatalf("Triple() failed: %v", err)
		}
		triples = append(triples, tr)
	}
	return triples
}

func testTriples() []*rdf.Triple {
	ns := "http://example.org/coptic#"
	m1 := rdf.NewNamedNode(ns + "m1")
	m2 := rdf.NewNamedNode(ns + "m2")
	manuscript := rdf.NewNamedNode(ns + "Manuscript")
	title := rdf.NewNamedNode(ns + "title")

	return []*rdf.Triple{
		rdf.NewTriple(m1, rdf.RDFType, manuscript),
		rdf.NewTriple(m2, rdf.RDFType, manuscript),
		rdf.NewTriple(m1, title, rdf.NewLiteral("Apocryphon of John")),
		rdf.NewTriple(m2, title, rdf.NewLiteral("Gospel of Thomas")),
	}
}

func TestTripleStore_InsertAndCount(t *testing.T) {
	ts := newTestStore(t)

	if err := ts.InsertAll(testTriples()); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	count, err := ts.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 triples, got %d", count)
	}
}

func TestTripleStore_InsertIdempotent(t *testing.T) {
	ts := newTestStore(t)

	triple := testTriples()[0]
	if err := ts.Insert(triple); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ts.Insert(triple); err != nil {
		t.Fatalf("Repeat insert failed: %v", err)
	}

	count, err := ts.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Duplicate insert should not add a triple, got count %d", count)
	}
}

func TestTripleStore_QueryBySubject(t *testing.T) {
	ts := newTestStore(t)
	if err := ts.InsertAll(testTriples()); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	it, err := ts.Query(&store.Pattern{
		Subject:   rdf.NewNamedNode("http://example.org/coptic#m1"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	triples := collectTriples(t, it)
	if len(triples) != 2 {
		t.Fatalf("Expected 2 triples for m1, got %d", len(triples))
	}
	for _, tr := range triples {
		if tr.Subject.(*rdf.NamedNode).IRI != "http://example.org/coptic#m1" {
			t.Errorf("Wrong subject: %s", tr.Subject.String())
		}
	}
}

func TestTripleStore_QueryByPredicateObject(t *testing.T) {
	ts := newTestStore(t)
	if err := ts.InsertAll(testTriples()); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	it, err := ts.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: rdf.RDFType,
		Object:    rdf.NewNamedNode("http://example.org/coptic#Manuscript"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	triples := collectTriples(t, it)
	if len(triples) != 2 {
		t.Fatalf("Expected 2 manuscripts, got %d", len(triples))
	}
}

func TestTripleStore_QueryAllVariables(t *testing.T) {
	ts := newTestStore(t)
	if err := ts.InsertAll(testTriples()); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	it, err := ts.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	triples := collectTriples(t, it)
	if len(triples) != 4 {
		t.Fatalf("Expected all 4 triples, got %d", len(triples))
	}
}

func TestTripleStore_QueryNoMatch(t *testing.T) {
	ts := newTestStore(t)
	if err := ts.InsertAll(testTriples()); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	it, err := ts.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: rdf.NewNamedNode("http://example.org/coptic#nonexistent"),
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	triples := collectTriples(t, it)
	if len(triples) != 0 {
		t.Errorf("Expected no matches, got %d", len(triples))
	}
}

func TestTripleStore_LongLiteralsRoundTrip(t *testing.T) {
	ts := newTestStore(t)

	subject := rdf.NewNamedNode("http://example.org/coptic#m9")
	note := rdf.NewNamedNode("http://example.org/coptic#note")
	value := "A parchment codex of the White Monastery, heavily damaged by damp"
	if err := ts.Insert(rdf.NewTriple(subject, note, rdf.NewLiteral(value))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	it, err := ts.Query(&store.Pattern{
		Subject:   subject,
		Predicate: note,
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	triples := collectTriples(t, it)
	if len(triples) != 1 {
		t.Fatalf("Expected 1 triple, got %d", len(triples))
	}
	lit, ok := triples[0].Object.(*rdf.Literal)
	if !ok || lit.Value != value {
		t.Errorf("Long literal did not round trip: %v", triples[0].Object)
	}
}

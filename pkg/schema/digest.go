// Package schema builds a compact digest of the loaded graph's
// vocabulary. The digest grounds translation prompts: it tells the
// language model which classes, properties, and value shapes actually
// exist, so generated queries use real IRIs instead of invented ones.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sjhuskey/copticqa/pkg/graph"
	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/store"
)

var dctermsTitle = rdf.NewNamedNode("http://purl.org/dc/terms/title")

// maxExampleLength bounds example literals in the rendered digest.
const maxExampleLength = 80

// Property describes one predicate used by instances of a class.
type Property struct {
	IRI     string
	Label   string
	Example string // one literal value, empty when the property only links resources
}

// Class describes one rdf:type value found in the graph.
type Class struct {
	IRI        string
	Label      string
	Instances  int
	Properties []Property
}

// Digest is an immutable summary of the graph's vocabulary, built once
// after loading.
type Digest struct {
	Classes  []Class
	prefixes map[string]string
}

// Build scans the graph and assembles the digest. Classes and
// properties are sorted by IRI; example literals are the
// lexicographically smallest value seen, so the result is deterministic
// for a given graph. The prefixes map (prefix → namespace IRI) is used
// to compress IRIs in the rendered form.
func Build(g *graph.Graph, prefixes map[string]string) (*Digest, error) {
	instances, err := collectInstances(g)
	if err != nil {
		return nil, err
	}

	var classes []Class
	for classIRI, members := range instances {
		class := Class{
			IRI:       classIRI,
			Instances: len(members),
		}

		props, err := collectProperties(g, members)
		if err != nil {
			return nil, err
		}
		class.Properties = props

		label, err := lookupLabel(g, classIRI)
		if err != nil {
			return nil, err
		}
		class.Label = label

		classes = append(classes, class)
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].IRI < classes[j].IRI })

	for i := range classes {
		for j := range classes[i].Properties {
			p := &classes[i].Properties[j]
			label, err := lookupLabel(g, p.IRI)
			if err != nil {
				return nil, err
			}
			p.Label = label
		}
	}

	return &Digest{Classes: classes, prefixes: prefixes}, nil
}

// collectInstances maps each class IRI to its instance IRIs.
func collectInstances(g *graph.Graph) (map[string][]string, error) {
	iter, err := g.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: rdf.RDFType,
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan types: %w", err)
	}
	defer iter.Close()

	instances := make(map[string][]string)
	for iter.Next() {
		triple, err := iter.Triple()
		if err != nil {
			return nil, err
		}
		class, ok := triple.Object.(*rdf.NamedNode)
		if !ok {
			continue
		}
		subject, ok := triple.Subject.(*rdf.NamedNode)
		if !ok {
			continue
		}
		instances[class.IRI] = append(instances[class.IRI], subject.IRI)
	}

	for _, members := range instances {
		sort.Strings(members)
	}
	return instances, nil
}

// collectProperties gathers the predicates used by the given instances,
// keeping one example literal per predicate.
func collectProperties(g *graph.Graph, members []string) ([]Property, error) {
	examples := make(map[string]string)
	hasExample := make(map[string]bool)

	for _, member := range members {
		iter, err := g.Query(&store.Pattern{
			Subject:   rdf.NewNamedNode(member),
			Predicate: store.NewVariable("p"),
			Object:    store.NewVariable("o"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance %s: %w", member, err)
		}

		for iter.Next() {
			triple, err := iter.Triple()
			if err != nil {
				iter.Close()
				return nil, err
			}
			pred, ok := triple.Predicate.(*rdf.NamedNode)
			if !ok || pred.IRI == rdf.RDFType.IRI {
				continue
			}

			if _, seen := examples[pred.IRI]; !seen {
				examples[pred.IRI] = ""
			}
			lit, ok := triple.Object.(*rdf.Literal)
			if !ok {
				continue
			}
			value := lit.Value
			if len(value) > maxExampleLength {
				value = value[:maxExampleLength]
			}
			if !hasExample[pred.IRI] || value < examples[pred.IRI] {
				examples[pred.IRI] = value
				hasExample[pred.IRI] = true
			}
		}
		iter.Close()
	}

	props := make([]Property, 0, len(examples))
	for iri, example := range examples {
		props = append(props, Property{IRI: iri, Example: example})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].IRI < props[j].IRI })
	return props, nil
}

// lookupLabel returns the rdfs:label (preferred) or dcterms:title of a
// resource, falling back to the IRI local name.
func lookupLabel(g *graph.Graph, iri string) (string, error) {
	node := rdf.NewNamedNode(iri)
	for _, labelPred := range []*rdf.NamedNode{rdf.RDFSLabel, dctermsTitle} {
		iter, err := g.Query(&store.Pattern{
			Subject:   node,
			Predicate: labelPred,
			Object:    store.NewVariable("o"),
		})
		if err != nil {
			return "", err
		}

		best := ""
		for iter.Next() {
			triple, err := iter.Triple()
			if err != nil {
				iter.Close()
				return "", err
			}
			if lit, ok := triple.Object.(*rdf.Literal); ok {
				if best == "" || lit.Value < best {
					best = lit.Value
				}
			}
		}
		iter.Close()
		if best != "" {
			return best, nil
		}
	}
	return node.LocalName(), nil
}

// QName compresses an IRI using the digest's prefix table, returning
// the full IRI in angle brackets when no prefix matches.
func (d *Digest) QName(iri string) string {
	bestPrefix, bestNS := "", ""
	for prefix, ns := range d.prefixes {
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			bestPrefix, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return "<" + iri + ">"
	}
	return bestPrefix + ":" + strings.TrimPrefix(iri, bestNS)
}

// Describe renders the digest as prompt text. The output is stable for
// a given graph.
func (d *Digest) Describe() string {
	var b strings.Builder

	b.WriteString("Vocabulary of the knowledge graph.\n\n")

	if len(d.prefixes) > 0 {
		b.WriteString("Prefixes:\n")
		prefixes := make([]string, 0, len(d.prefixes))
		for prefix := range d.prefixes {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			fmt.Fprintf(&b, "  PREFIX %s: <%s>\n", prefix, d.prefixes[prefix])
		}
		b.WriteString("\n")
	}

	for _, class := range d.Classes {
		fmt.Fprintf(&b, "Class %s (%s), %d instances\n", d.QName(class.IRI), class.Label, class.Instances)
		for _, prop := range class.Properties {
			if prop.Example != "" {
				fmt.Fprintf(&b, "  %s (%s), example: %q\n", d.QName(prop.IRI), prop.Label, prop.Example)
			} else {
				fmt.Fprintf(&b, "  %s (%s), links to other resources\n", d.QName(prop.IRI), prop.Label)
			}
		}
	}

	return b.String()
}

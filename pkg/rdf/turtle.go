package rdf

import (
	"fmt"
	"strconv"
	"strings"
)

// TurtleParser parses Turtle documents (N-Triples is handled as a subset).
// It covers the constructs the ontology and data exports actually use:
// prefix/base directives, property lists with ';' and ',', the 'a'
// keyword, language-tagged and datatyped literals, and comments.
type TurtleParser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	base     string
}

// NewTurtleParser creates a parser over the given document.
func NewTurtleParser(input string) *TurtleParser {
	return &TurtleParser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// Parse parses the document and returns its triples in document order.
func (p *TurtleParser) Parse() ([]*Triple, error) {
	var triples []*Triple

	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		if p.matchDirective("@prefix") || p.matchDirective("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, err
			}
			continue
		}

		if p.matchDirective("@base") || p.matchDirective("BASE") {
			if err := p.parseBase(); err != nil {
				return nil, err
			}
			continue
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		triples = append(triples, stmt...)
	}

	return triples, nil
}

// parseStatement parses one subject with its predicate-object list.
func (p *TurtleParser) parseStatement() ([]*Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject: %w", err)
	}

	var triples []*Triple
	for {
		p.skipWhitespaceAndComments()

		predicate, err := p.parsePredicate()
		if err != nil {
			return nil, fmt.Errorf("failed to parse predicate: %w", err)
		}

		// Object list: obj (',' obj)*
		for {
			p.skipWhitespaceAndComments()
			object, err := p.parseTerm()
			if err != nil {
				return nil, fmt.Errorf("failed to parse object: %w", err)
			}
			triples = append(triples, NewTriple(subject, predicate, object))

			p.skipWhitespaceAndComments()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}

		if p.peek() == ';' {
			p.pos++
			p.skipWhitespaceAndComments()
			// Trailing ';' before the terminating '.'
			if p.peek() == '.' {
				break
			}
			continue
		}
		break
	}

	p.skipWhitespaceAndComments()
	if p.peek() != '.' {
		return nil, fmt.Errorf("expected '.' at end of statement (position %d)", p.pos)
	}
	p.pos++

	return triples, nil
}

// parsePredicate parses a predicate term, accepting the 'a' shorthand.
func (p *TurtleParser) parsePredicate() (Term, error) {
	if p.peek() == 'a' {
		next := byte(0)
		if p.pos+1 < p.length {
			next = p.input[p.pos+1]
		}
		if next == ' ' || next == '\t' || next == '\n' || next == '\r' || next == '<' {
			p.pos++
			return RDFType, nil
		}
	}
	return p.parseTerm()
}

// parseTerm parses an IRI, blank node, or literal.
func (p *TurtleParser) parseTerm() (Term, error) {
	p.skipWhitespaceAndComments()
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}

	ch := p.peek()

	if ch == '<' {
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	}

	if ch == '_' && p.pos+1 < p.length && p.input[p.pos+1] == ':' {
		return p.parseBlankNode()
	}

	if ch == '"' || ch == '\'' {
		return p.parseLiteral(ch)
	}

	if (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' {
		return p.parseNumber()
	}

	if p.matchDirective("true") {
		return NewBooleanLiteral(true), nil
	}
	if p.matchDirective("false") {
		return NewBooleanLiteral(false), nil
	}

	if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == ':' {
		return p.parsePrefixedName()
	}

	return nil, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
}

func (p *TurtleParser) parsePrefix() error {
	p.skipWhitespaceAndComments()

	prefixStart := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= p.length {
		return fmt.Errorf("expected ':' after prefix name")
	}
	prefix := strings.TrimSpace(p.input[prefixStart:p.pos])
	p.pos++ // skip ':'

	p.skipWhitespaceAndComments()
	iri, err := p.parseIRIRef()
	if err != nil {
		return fmt.Errorf("failed to parse prefix IRI: %w", err)
	}
	p.prefixes[prefix] = iri

	p.skipWhitespaceAndComments()
	if p.peek() == '.' {
		p.pos++
	}
	return nil
}

func (p *TurtleParser) parseBase() error {
	p.skipWhitespaceAndComments()
	iri, err := p.parseIRIRef()
	if err != nil {
		return fmt.Errorf("failed to parse base IRI: %w", err)
	}
	p.base = iri

	p.skipWhitespaceAndComments()
	if p.peek() == '.' {
		p.pos++
	}
	return nil
}

func (p *TurtleParser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	iri := p.input[start:p.pos]
	p.pos++ // skip '>'

	if p.base != "" && !strings.Contains(iri, ":") {
		iri = p.base + iri
	}
	return iri, nil
}

func (p *TurtleParser) parseBlankNode() (Term, error) {
	p.pos += 2 // skip '_:'
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label at position %d", p.pos)
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

func (p *TurtleParser) parseLiteral(quote byte) (Term, error) {
	value, err := p.parseQuotedString(quote)
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.pos++
		langStart := p.pos
		for p.pos < p.length {
			ch := p.input[p.pos]
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '-') {
				break
			}
			p.pos++
		}
		return NewLiteralWithLanguage(value, p.input[langStart:p.pos]), nil
	}

	if p.peek() == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^' {
		p.pos += 2
		dt, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("failed to parse datatype: %w", err)
		}
		dtNode, ok := dt.(*NamedNode)
		if !ok {
			return nil, fmt.Errorf("datatype must be an IRI")
		}
		return NewLiteralWithDatatype(value, dtNode), nil
	}

	return NewLiteral(value), nil
}

func (p *TurtleParser) parseQuotedString(quote byte) (string, error) {
	// Triple-quoted long string
	if p.pos+2 < p.length && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote {
		p.pos += 3
		var value strings.Builder
		for p.pos < p.length {
			if p.pos+2 < p.length &&
				p.input[p.pos] == quote && p.input[p.pos+1] == quote && p.input[p.pos+2] == quote {
				p.pos += 3
				return value.String(), nil
			}
			value.WriteByte(p.input[p.pos])
			p.pos++
		}
		return "", fmt.Errorf("unclosed long string literal")
	}

	p.pos++ // skip opening quote
	var value strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == quote {
			p.pos++
			return value.String(), nil
		}
		if ch == '\\' && p.pos+1 < p.length {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case '"':
				value.WriteByte('"')
			case '\'':
				value.WriteByte('\'')
			case '\\':
				value.WriteByte('\\')
			case 'u':
				if p.pos+4 < p.length {
					if code, err := strconv.ParseInt(p.input[p.pos+1:p.pos+5], 16, 32); err == nil {
						value.WriteRune(rune(code))
						p.pos += 4
					}
				}
			default:
				value.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		value.WriteByte(ch)
		p.pos++
	}
	return "", fmt.Errorf("unclosed string literal")
}

func (p *TurtleParser) parseNumber() (Term, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}

	hasDigits := false
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
		hasDigits = true
	}
	if !hasDigits {
		return nil, fmt.Errorf("expected digits in number at position %d", start)
	}

	isDouble := false
	if p.pos < p.length && p.input[p.pos] == '.' {
		// A '.' followed by a digit continues the number; otherwise it
		// terminates the statement.
		if p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9' {
			isDouble = true
			p.pos++
			for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
				p.pos++
			}
		}
	}
	if p.pos < p.length && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		isDouble = true
		p.pos++
		if p.pos < p.length && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
			p.pos++
		}
		for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}

	numStr := p.input[start:p.pos]
	if isDouble {
		val, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse double %q: %w", numStr, err)
		}
		return NewDoubleLiteral(val), nil
	}
	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse integer %q: %w", numStr, err)
	}
	return NewIntegerLiteral(val), nil
}

func (p *TurtleParser) parsePrefixedName() (Term, error) {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		if !isNameChar(p.input[p.pos]) && p.input[p.pos] != '.' {
			break
		}
		p.pos++
	}
	if p.peek() != ':' {
		return nil, fmt.Errorf("expected ':' in prefixed name at position %d", start)
	}
	prefix := p.input[start:p.pos]
	p.pos++ // skip ':'

	localStart := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	local := p.input[localStart:p.pos]

	base, ok := p.prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("undefined prefix: %q", prefix)
	}
	return NewNamedNode(base + local), nil
}

func (p *TurtleParser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *TurtleParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

// matchDirective consumes the keyword if it appears at the current
// position followed by a non-name character.
func (p *TurtleParser) matchDirective(keyword string) bool {
	if p.pos+len(keyword) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(keyword)], keyword) {
		return false
	}
	if p.pos+len(keyword) < p.length && isNameChar(p.input[p.pos+len(keyword)]) {
		return false
	}
	p.pos += len(keyword)
	return true
}

func isNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_' || ch == '-'
}

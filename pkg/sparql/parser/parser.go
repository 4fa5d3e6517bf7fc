// Package parser implements a recursive-descent parser for the SPARQL
// SELECT and ASK query forms.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sjhuskey/copticqa/pkg/rdf"
)

// Parser parses SPARQL queries.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	baseURI  string
}

// NewParser creates a new SPARQL parser.
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// Parse parses a SPARQL query.
func (p *Parser) Parse() (*Query, error) {
	for {
		p.skipWhitespace()
		if p.matchKeyword("PREFIX") {
			if err := p.parsePrefixDecl(); err != nil {
				return nil, err
			}
		} else if p.matchKeyword("BASE") {
			if err := p.parseBaseDecl(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}

	query := &Query{}

	switch {
	case p.matchKeyword("SELECT"):
		query.QueryType = QueryTypeSelect
		selectQuery, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		query.Select = selectQuery
	case p.matchKeyword("ASK"):
		query.QueryType = QueryTypeAsk
		askQuery, err := p.parseAsk()
		if err != nil {
			return nil, err
		}
		query.Ask = askQuery
	default:
		return nil, fmt.Errorf("expected query form (SELECT or ASK)")
	}

	p.skipWhitespace()
	if p.pos < p.length {
		return nil, fmt.Errorf("unexpected content after query at position %d", p.pos)
	}

	return query, nil
}

func (p *Parser) parseSelect() (*SelectQuery, error) {
	query := &SelectQuery{}

	if p.matchKeyword("DISTINCT") {
		query.Distinct = true
	} else {
		p.matchKeyword("REDUCED") // accepted, treated as plain SELECT
	}

	projection, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	query.Projection = projection

	// WHERE keyword is optional
	p.matchKeyword("WHERE")

	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	query.Where = where

	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after GROUP")
		}
		groupBy, err := p.parseGroupBy()
		if err != nil {
			return nil, err
		}
		query.GroupBy = groupBy
	}

	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after ORDER")
		}
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		query.OrderBy = orderBy
	}

	if p.matchKeyword("LIMIT") {
		limit, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		query.Limit = &limit
	}

	if p.matchKeyword("OFFSET") {
		offset, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		query.Offset = &offset
	}

	return query, nil
}

func (p *Parser) parseAsk() (*AskQuery, error) {
	p.matchKeyword("WHERE")

	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}

	return &AskQuery{Where: where}, nil
}

// parseProjection parses the SELECT clause: '*', variables, or
// aggregate expressions of the form (COUNT(?x) AS ?n).
func (p *Parser) parseProjection() ([]*ProjectionItem, error) {
	p.skipWhitespace()

	if p.peek() == '*' {
		p.advance()
		return nil, nil
	}

	var items []*ProjectionItem
	for {
		p.skipWhitespace()
		ch := p.peek()

		if ch == '?' || ch == '$' {
			variable, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			items = append(items, &ProjectionItem{Variable: variable})
			continue
		}

		if ch == '(' {
			aggregate, err := p.parseAggregate()
			if err != nil {
				return nil, err
			}
			items = append(items, &ProjectionItem{Aggregate: aggregate})
			continue
		}

		break
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("expected '*' or at least one variable in SELECT clause")
	}
	return items, nil
}

// parseAggregate parses (FUNC([DISTINCT] expr|*) AS ?var).
func (p *Parser) parseAggregate() (*Aggregate, error) {
	p.advance() // consume '('
	p.skipWhitespace()

	funcName := strings.ToUpper(p.readWhile(isIdentByte))
	switch funcName {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
	default:
		return nil, fmt.Errorf("unsupported aggregate function: %q", funcName)
	}

	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' after %s", funcName)
	}
	p.advance()

	agg := &Aggregate{Function: funcName}

	if p.matchKeyword("DISTINCT") {
		agg.Distinct = true
	}

	p.skipWhitespace()
	if p.peek() == '*' {
		if funcName != "COUNT" {
			return nil, fmt.Errorf("'*' is only valid in COUNT")
		}
		p.advance()
	} else {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s argument: %w", funcName, err)
		}
		agg.Argument = arg
	}

	p.skipWhitespace()
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' after %s argument", funcName)
	}
	p.advance()

	if !p.matchKeyword("AS") {
		return nil, fmt.Errorf("expected AS in aggregate projection")
	}

	p.skipWhitespace()
	alias, err := p.parseVariable()
	if err != nil {
		return nil, err
	}
	agg.As = alias

	p.skipWhitespace()
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' to close aggregate projection")
	}
	p.advance()

	return agg, nil
}

func (p *Parser) parseGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()

	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start graph pattern")
	}
	p.advance()

	pattern := &GraphPattern{Type: GraphPatternTypeBasic}

	for {
		p.skipWhitespace()

		if p.pos >= p.length {
			return nil, fmt.Errorf("unexpected end of input in graph pattern")
		}

		if p.peek() == '}' {
			p.advance()
			break
		}

		if p.matchKeyword("FILTER") {
			filter, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			pattern.Filters = append(pattern.Filters, filter)
			continue
		}

		if p.matchKeyword("OPTIONAL") {
			optionalPattern, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			optionalPattern.Type = GraphPatternTypeOptional
			pattern.Children = append(pattern.Children, optionalPattern)
			continue
		}

		// Nested group, possibly the left side of a UNION chain
		if p.peek() == '{' {
			nested, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}

			p.skipWhitespace()
			if p.matchKeyword("UNION") {
				union := &GraphPattern{
					Type:     GraphPatternTypeUnion,
					Children: []*GraphPattern{nested},
				}
				for {
					right, err := p.parseGraphPattern()
					if err != nil {
						return nil, err
					}
					union.Children = append(union.Children, right)
					p.skipWhitespace()
					if !p.matchKeyword("UNION") {
						break
					}
				}
				pattern.Children = append(pattern.Children, union)
			} else {
				pattern.Children = append(pattern.Children, nested)
			}
			continue
		}

		triples, err := p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
		pattern.Patterns = append(pattern.Patterns, triples...)

		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}

	return pattern, nil
}

func (p *Parser) parseTriplePattern() (*TriplePattern, error) {
	subject, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject: %w", err)
	}

	predicate, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse predicate: %w", err)
	}

	object, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object: %w", err)
	}

	return &TriplePattern{
		Subject:   *subject,
		Predicate: *predicate,
		Object:    *object,
	}, nil
}

// parseTriplePatterns handles the property list shorthand:
//
//	?s ?p1 ?o1 ; ?p2 ?o2 .   (semicolon repeats the subject)
//	?s ?p ?o1 , ?o2 .        (comma repeats subject and predicate)
func (p *Parser) parseTriplePatterns() ([]*TriplePattern, error) {
	first, err := p.parseTriplePattern()
	if err != nil {
		return nil, err
	}
	triples := []*TriplePattern{first}

	current := first
	for {
		p.skipWhitespace()
		ch := p.peek()

		if ch == ',' {
			p.advance()
			object, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse object after comma: %w", err)
			}
			triple := &TriplePattern{
				Subject:   current.Subject,
				Predicate: current.Predicate,
				Object:    *object,
			}
			triples = append(triples, triple)
			current = triple

		} else if ch == ';' {
			p.advance()
			p.skipWhitespace()
			if p.peek() == '.' || p.peek() == '}' {
				break
			}

			predicate, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse predicate after semicolon: %w", err)
			}
			object, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse object after semicolon: %w", err)
			}
			triple := &TriplePattern{
				Subject:   first.Subject,
				Predicate: *predicate,
				Object:    *object,
			}
			triples = append(triples, triple)
			current = triple

		} else {
			break
		}
	}

	return triples, nil
}

func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWhitespace()

	ch := p.peek()

	if ch == '?' || ch == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: variable}, nil
	}

	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	if ch == '"' || ch == '\'' {
		literal, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil
	}

	if ch == '_' {
		blankNode, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: blankNode}, nil
	}

	if (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' {
		literal, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: literal}, nil
	}

	// 'a' shorthand for rdf:type
	if ch == 'a' {
		next := byte(0)
		if p.pos+1 < p.length {
			next = p.input[p.pos+1]
		}
		if !isIdentByte(next) && next != ':' {
			p.advance()
			return &TermOrVariable{Term: rdf.RDFType}, nil
		}
	}

	// Boolean literals, unless the word is a prefix label like true:x
	if ch == 't' || ch == 'T' || ch == 'f' || ch == 'F' {
		savedPos := p.pos
		if p.matchKeyword("TRUE") {
			if p.peek() != ':' {
				return &TermOrVariable{Term: rdf.NewBooleanLiteral(true)}, nil
			}
			p.pos = savedPos
		} else if p.matchKeyword("FALSE") {
			if p.peek() != ':' {
				return &TermOrVariable{Term: rdf.NewBooleanLiteral(false)}, nil
			}
			p.pos = savedPos
		}
	}

	if ch == ':' || isIdentByte(ch) {
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	return nil, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
}

func (p *Parser) parseVariable() (*Variable, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return nil, fmt.Errorf("expected variable starting with ? or $")
	}
	p.advance()

	name := p.readWhile(isIdentByte)
	if name == "" {
		return nil, fmt.Errorf("invalid variable name")
	}

	return &Variable{Name: name}, nil
}

func (p *Parser) parseIRI() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' to start IRI")
	}
	p.advance()

	iri := p.readWhile(func(ch byte) bool { return ch != '>' })

	if p.peek() != '>' {
		return "", fmt.Errorf("expected '>' to end IRI")
	}
	p.advance()

	return p.resolveIRI(iri), nil
}

// parseRDFLiteral parses a string literal with optional language tag or
// datatype annotation.
func (p *Parser) parseRDFLiteral() (*rdf.Literal, error) {
	value, err := p.parseQuotedString()
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '-'
		})
		if lang == "" {
			return nil, fmt.Errorf("empty language tag")
		}
		return rdf.NewLiteralWithLanguage(value, lang), nil
	}

	if p.match("^^") {
		p.skipWhitespace()
		var dtIRI string
		if p.peek() == '<' {
			dtIRI, err = p.parseIRI()
		} else {
			dtIRI, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value, rdf.NewNamedNode(dtIRI)), nil
	}

	return rdf.NewLiteral(value), nil
}

func (p *Parser) parseQuotedString() (string, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("expected quote to start string literal")
	}
	p.advance()

	var value strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == quote {
			p.advance()
			return value.String(), nil
		}
		if ch == '\\' && p.pos+1 < p.length {
			p.advance()
			switch p.input[p.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			default:
				value.WriteByte(p.input[p.pos])
			}
			p.advance()
			continue
		}
		value.WriteByte(ch)
		p.advance()
	}

	return "", fmt.Errorf("unclosed string literal")
}

func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if p.peek() != '_' {
		return nil, fmt.Errorf("expected '_' to start blank node")
	}
	p.advance()

	if p.peek() != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.advance()

	id := p.readWhile(isIdentByte)
	if id == "" {
		return nil, fmt.Errorf("empty blank node label")
	}
	return rdf.NewBlankNode(id), nil
}

func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	numStr := p.readWhile(func(ch byte) bool {
		return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
	})

	if !strings.ContainsAny(numStr, ".eE") {
		if _, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return rdf.NewLiteralWithDatatype(numStr, rdf.XSDInteger), nil
		}
	}

	if _, err := strconv.ParseFloat(numStr, 64); err != nil {
		return nil, fmt.Errorf("invalid numeric literal: %q", numStr)
	}
	return rdf.NewLiteralWithDatatype(numStr, rdf.XSDDouble), nil
}

func (p *Parser) parseFilter() (*Filter, error) {
	p.skipWhitespace()

	// SPARQL allows both FILTER (expr) and FILTER funcCall(...).
	// The outer parens, when present, are consumed here; a bare function
	// call provides its own delimiters.
	needsOuterParens := p.peek() == '('
	if needsOuterParens {
		p.advance()
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing FILTER expression: %w", err)
	}

	if needsOuterParens {
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' after FILTER expression")
		}
		p.advance()
	}

	return &Filter{Expression: expr}, nil
}

func (p *Parser) parseGroupBy() ([]*Variable, error) {
	var variables []*Variable
	for {
		p.skipWhitespace()
		if p.peek() != '?' && p.peek() != '$' {
			break
		}
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		variables = append(variables, variable)
	}

	if len(variables) == 0 {
		return nil, fmt.Errorf("expected at least one variable in GROUP BY")
	}
	return variables, nil
}

func (p *Parser) parseOrderBy() ([]*OrderCondition, error) {
	var conditions []*OrderCondition

	for {
		p.skipWhitespace()

		ascending := true
		explicit := false
		if p.matchKeyword("DESC") {
			ascending = false
			explicit = true
		} else if p.matchKeyword("ASC") {
			explicit = true
		}

		p.skipWhitespace()
		if explicit {
			if p.peek() != '(' {
				return nil, fmt.Errorf("expected '(' after ASC/DESC")
			}
			p.advance()
			p.skipWhitespace()
		}

		if p.peek() != '?' && p.peek() != '$' {
			if explicit {
				return nil, fmt.Errorf("expected variable in ORDER BY condition")
			}
			break
		}

		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}

		if explicit {
			p.skipWhitespace()
			if p.peek() != ')' {
				return nil, fmt.Errorf("expected ')' after ORDER BY condition")
			}
			p.advance()
		}

		conditions = append(conditions, &OrderCondition{
			Expression: &VariableExpression{Variable: variable},
			Ascending:  ascending,
		})
	}

	if len(conditions) == 0 {
		return nil, fmt.Errorf("expected at least one condition in ORDER BY")
	}
	return conditions, nil
}

func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()

	numStr := p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	if numStr == "" {
		return 0, fmt.Errorf("expected integer")
	}
	return strconv.Atoi(numStr)
}

// Expression parsing with operator precedence:
//
//	Expression     → Or
//	Or             → And ( '||' And )*
//	And            → Comparison ( '&&' Comparison )*
//	Comparison     → Additive ( ('='|'!='|'<'|'<='|'>'|'>=') Additive )?
//	Additive       → Multiplicative ( ('+'|'-') Multiplicative )*
//	Multiplicative → Unary ( ('*'|'/') Unary )*
//	Unary          → ('!'|'-'|'+')? Primary
//	Primary        → Variable | Literal | FunctionCall | '(' Expression ')'

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOrExpression()
}

func (p *Parser) parseOrExpression() (Expression, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		if !p.match("||") {
			break
		}
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAndExpression() (Expression, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		if !p.match("&&") {
			break
		}
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
	}

	return left, nil
}

func (p *Parser) parseComparisonExpression() (Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()

	var op Operator
	switch {
	case p.match("<="):
		op = OpLessThanOrEqual
	case p.match(">="):
		op = OpGreaterThanOrEqual
	case p.match("!="):
		op = OpNotEqual
	case p.match("="):
		op = OpEqual
	case p.match("<"):
		op = OpLessThan
	case p.match(">"):
		op = OpGreaterThan
	default:
		return left, nil
	}

	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	return &BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

func (p *Parser) parseAdditiveExpression() (Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op Operator
		if p.match("+") {
			op = OpAdd
		} else if p.match("-") {
			op = OpSubtract
		} else {
			break
		}

		right, err := p.parseMultiplicativeExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

func (p *Parser) parseMultiplicativeExpression() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op Operator
		if p.match("*") {
			op = OpMultiply
		} else if p.match("/") {
			op = OpDivide
		} else {
			break
		}

		right, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()

	if p.match("!") {
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	}

	if p.match("+") {
		return p.parseUnaryExpression()
	}

	if p.match("-") {
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{
			Left:     &LiteralExpression{Literal: rdf.NewIntegerLiteral(0)},
			Operator: OpSubtract,
			Right:    operand,
		}, nil
	}

	return p.parsePrimaryExpression()
}

func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()

	if p.matchKeyword("TRUE") {
		return &LiteralExpression{Literal: rdf.NewBooleanLiteral(true)}, nil
	}
	if p.matchKeyword("FALSE") {
		return &LiteralExpression{Literal: rdf.NewBooleanLiteral(false)}, nil
	}

	if p.peek() == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		p.advance()
		return expr, nil
	}

	if p.peek() == '?' || p.peek() == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: variable}, nil
	}

	// Function call: identifier immediately followed by '('
	ch := p.peek()
	if isIdentByte(ch) && !(ch >= '0' && ch <= '9') {
		savedPos := p.pos
		_ = p.readWhile(isIdentByte)
		p.skipWhitespace()
		if p.peek() == '(' {
			p.pos = savedPos
			return p.parseFunctionCall()
		}
		p.pos = savedPos
	}

	termOrVar, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("expected expression: %w", err)
	}
	if termOrVar.Term != nil {
		return &LiteralExpression{Literal: termOrVar.Term}, nil
	}
	return &VariableExpression{Variable: termOrVar.Variable}, nil
}

func (p *Parser) parseFunctionCall() (Expression, error) {
	funcName := p.readWhile(isIdentByte)
	if funcName == "" {
		return nil, fmt.Errorf("expected function name")
	}

	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' after function name")
	}
	p.advance()

	var args []Expression
	p.skipWhitespace()

	if p.peek() == ')' {
		p.advance()
		return &FunctionCallExpression{Function: strings.ToUpper(funcName)}, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing function argument: %w", err)
		}
		args = append(args, arg)

		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
			continue
		}
		break
	}

	p.skipWhitespace()
	if p.peek() != ')' {
		return nil, fmt.Errorf("expected ')' after function arguments")
	}
	p.advance()

	return &FunctionCallExpression{
		Function:  strings.ToUpper(funcName),
		Arguments: args,
	}, nil
}

// Helper methods

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}

		// Comments run from # to end of line
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' && p.input[p.pos] != '\r' {
				p.pos++
			}
			continue
		}

		break
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// matchKeyword consumes the keyword if it appears at the current position
// (case-insensitive) followed by a non-identifier character.
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()

	if p.pos+len(keyword) > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(keyword)], keyword) {
		return false
	}
	if p.pos+len(keyword) < p.length && isIdentByte(p.input[p.pos+len(keyword)]) {
		return false
	}

	p.pos += len(keyword)
	return true
}

// match consumes the exact string if it appears at the current position.
func (p *Parser) match(s string) bool {
	if p.pos+len(s) > p.length {
		return false
	}
	if p.input[p.pos:p.pos+len(s)] != s {
		return false
	}
	p.pos += len(s)
	return true
}

func (p *Parser) parsePrefixDecl() error {
	p.skipWhitespace()

	prefix := p.readWhile(isIdentByte)
	if p.peek() != ':' {
		return fmt.Errorf("expected ':' in PREFIX declaration")
	}
	p.advance()

	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("failed to parse PREFIX IRI: %w", err)
	}

	p.prefixes[prefix] = iri
	return nil
}

func (p *Parser) parseBaseDecl() error {
	p.skipWhitespace()

	if p.peek() != '<' {
		return fmt.Errorf("expected '<' to start IRI in BASE declaration")
	}
	p.advance()
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if p.peek() != '>' {
		return fmt.Errorf("expected '>' to end IRI in BASE declaration")
	}
	p.advance()

	p.baseURI = iri
	return nil
}

func (p *Parser) parsePrefixedName() (string, error) {
	prefix := p.readWhile(isIdentByte)

	if p.peek() != ':' {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	p.advance()

	local := p.readWhile(isIdentByte)

	baseIRI, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix: %q", prefix)
	}

	return baseIRI + local, nil
}

func (p *Parser) resolveIRI(iri string) string {
	if p.baseURI == "" || isAbsoluteIRI(iri) {
		return iri
	}
	if strings.HasPrefix(iri, "#") {
		return p.baseURI + iri
	}
	return p.baseURI + iri
}

func isAbsoluteIRI(iri string) bool {
	colonIdx := strings.Index(iri, ":")
	if colonIdx <= 0 {
		return false
	}
	for i := 0; i < colonIdx; i++ {
		c := iri[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9' && i > 0) || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isIdentByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_' || ch == '-'
}

package parser

import (
	"github.com/sjhuskey/copticqa/pkg/rdf"
)

// Query represents a parsed SPARQL query.
type Query struct {
	QueryType QueryType
	Select    *SelectQuery
	Ask       *AskQuery
}

// QueryType represents the type of SPARQL query.
type QueryType int

const (
	QueryTypeSelect QueryType = iota
	QueryTypeAsk
)

// SelectQuery represents a SELECT query.
type SelectQuery struct {
	Projection []*ProjectionItem // nil means SELECT *
	Distinct   bool
	Where      *GraphPattern
	GroupBy    []*Variable
	OrderBy    []*OrderCondition
	Limit      *int
	Offset     *int
}

// ProjectionItem is one entry in the SELECT clause: either a plain
// variable or an aggregate expression with its alias.
type ProjectionItem struct {
	Variable  *Variable
	Aggregate *Aggregate
}

// Name returns the variable name the item binds in the result rows.
func (pi *ProjectionItem) Name() string {
	if pi.Aggregate != nil {
		return pi.Aggregate.As.Name
	}
	return pi.Variable.Name
}

// Aggregate represents an aggregate expression such as
// (COUNT(DISTINCT ?x) AS ?n).
type Aggregate struct {
	Function string // COUNT, SUM, MIN, MAX, AVG
	Distinct bool
	Argument Expression // nil for COUNT(*)
	As       *Variable
}

// AskQuery represents an ASK query.
type AskQuery struct {
	Where *GraphPattern
}

// GraphPattern represents a group graph pattern.
type GraphPattern struct {
	Type     GraphPatternType
	Patterns []*TriplePattern // basic graph pattern triples
	Filters  []*Filter
	Children []*GraphPattern // OPTIONAL, UNION, nested groups
}

// GraphPatternType represents the type of graph pattern.
type GraphPatternType int

const (
	GraphPatternTypeBasic GraphPatternType = iota
	GraphPatternTypeUnion
	GraphPatternTypeOptional
)

// TriplePattern represents a triple pattern with possible variables.
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

// TermOrVariable holds either an RDF term or a variable.
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// IsVariable returns true if this is a variable.
func (t *TermOrVariable) IsVariable() bool {
	return t.Variable != nil
}

// Variable represents a SPARQL variable.
type Variable struct {
	Name string
}

// Filter represents a FILTER constraint.
type Filter struct {
	Expression Expression
}

// OrderCondition represents one ORDER BY condition.
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}

// Expression represents a SPARQL expression.
type Expression interface {
	expressionNode()
}

// BinaryExpression represents a binary operation.
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (e *BinaryExpression) expressionNode() {}

// UnaryExpression represents a unary operation.
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (e *UnaryExpression) expressionNode() {}

// VariableExpression represents a variable reference.
type VariableExpression struct {
	Variable *Variable
}

func (e *VariableExpression) expressionNode() {}

// LiteralExpression represents a constant term.
type LiteralExpression struct {
	Literal rdf.Term
}

func (e *LiteralExpression) expressionNode() {}

// FunctionCallExpression represents a built-in function call.
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (e *FunctionCallExpression) expressionNode() {}

// Operator represents an operator in expressions.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot

	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

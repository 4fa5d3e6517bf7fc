package evaluator

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

func (e *Evaluator) evaluateBinaryExpression(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	// Logical operators need their own evaluation order for SPARQL's
	// error-tolerant || and short-circuit &&.
	switch expr.Operator {
	case parser.OpAnd:
		return e.evaluateAnd(expr, binding)
	case parser.OpOr:
		return e.evaluateOr(expr, binding)
	}

	left, err := e.Evaluate(expr.Left, binding)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(expr.Right, binding)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case parser.OpEqual:
		return rdf.NewBooleanLiteral(e.termsEqual(left, right)), nil
	case parser.OpNotEqual:
		return rdf.NewBooleanLiteral(!e.termsEqual(left, right)), nil
	case parser.OpLessThan:
		cmp, err := e.compareTerms(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(cmp < 0), nil
	case parser.OpLessThanOrEqual:
		cmp, err := e.compareTerms(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(cmp <= 0), nil
	case parser.OpGreaterThan:
		cmp, err := e.compareTerms(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(cmp > 0), nil
	case parser.OpGreaterThanOrEqual:
		cmp, err := e.compareTerms(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(cmp >= 0), nil

	case parser.OpAdd, parser.OpSubtract, parser.OpMultiply, parser.OpDivide:
		return e.evaluateArithmetic(expr.Operator, left, right)

	default:
		return nil, fmt.Errorf("unsupported binary operator: %v", expr.Operator)
	}
}

func (e *Evaluator) evaluateUnaryExpression(expr *parser.UnaryExpression, binding *store.Binding) (rdf.Term, error) {
	operand, err := e.Evaluate(expr.Operand, binding)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case parser.OpNot:
		ebv, err := e.effectiveBooleanValue(operand)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!ebv), nil
	default:
		return nil, fmt.Errorf("unsupported unary operator: %v", expr.Operator)
	}
}

func (e *Evaluator) evaluateAnd(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	left, err := e.Evaluate(expr.Left, binding)
	if err != nil {
		return nil, err
	}
	leftEBV, err := e.effectiveBooleanValue(left)
	if err != nil {
		return nil, err
	}
	if !leftEBV {
		return rdf.NewBooleanLiteral(false), nil
	}

	right, err := e.Evaluate(expr.Right, binding)
	if err != nil {
		return nil, err
	}
	rightEBV, err := e.effectiveBooleanValue(right)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(rightEBV), nil
}

func (e *Evaluator) evaluateOr(expr *parser.BinaryExpression, binding *store.Binding) (rdf.Term, error) {
	left, leftErr := e.Evaluate(expr.Left, binding)
	var leftEBV bool
	if leftErr == nil {
		leftEBV, leftErr = e.effectiveBooleanValue(left)
	}
	if leftErr == nil && leftEBV {
		return rdf.NewBooleanLiteral(true), nil
	}

	right, err := e.Evaluate(expr.Right, binding)
	if err == nil {
		rightEBV, rightErr := e.effectiveBooleanValue(right)
		if rightErr == nil && rightEBV {
			return rdf.NewBooleanLiteral(true), nil
		}
		if rightErr == nil && leftErr == nil {
			return rdf.NewBooleanLiteral(false), nil
		}
	}

	// An error on one side only propagates when the other side is not true
	if leftErr != nil {
		return nil, leftErr
	}
	return nil, err
}

// effectiveBooleanValue computes the EBV of a term per the SPARQL spec.
func (e *Evaluator) effectiveBooleanValue(term rdf.Term) (bool, error) {
	if term == nil {
		return false, fmt.Errorf("cannot compute EBV of nil term")
	}

	lit, ok := term.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("cannot compute EBV of non-literal term")
	}

	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDBoolean.IRI:
			return lit.Value == "true" || lit.Value == "1", nil

		case rdf.XSDInteger.IRI,
			"http://www.w3.org/2001/XMLSchema#int",
			"http://www.w3.org/2001/XMLSchema#long":
			val, err := strconv.ParseInt(lit.Value, 10, 64)
			if err != nil {
				return false, fmt.Errorf("invalid integer literal: %w", err)
			}
			return val != 0, nil

		case rdf.XSDDouble.IRI, rdf.XSDDecimal.IRI,
			"http://www.w3.org/2001/XMLSchema#float":
			val, err := strconv.ParseFloat(lit.Value, 64)
			if err != nil {
				return false, fmt.Errorf("invalid numeric literal: %w", err)
			}
			return val != 0 && !math.IsNaN(val), nil
		}
	}

	if lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI {
		return lit.Value != "", nil
	}

	return false, fmt.Errorf("cannot compute EBV of literal with datatype %s", lit.Datatype.IRI)
}

// termsEqual implements SPARQL '=' semantics: numeric literals compare
// by value, everything else by RDF term equality.
func (e *Evaluator) termsEqual(left, right rdf.Term) bool {
	leftNum, leftIsNum := e.extractNumeric(left)
	rightNum, rightIsNum := e.extractNumeric(right)
	if leftIsNum && rightIsNum {
		return leftNum == rightNum
	}

	// A plain literal and an xsd:string literal with the same value are
	// the same RDF term.
	if ll, ok := left.(*rdf.Literal); ok {
		if rl, ok := right.(*rdf.Literal); ok {
			return simpleLiteralValue(ll) == simpleLiteralValue(rl) &&
				ll.Language == rl.Language &&
				datatypeOrString(ll) == datatypeOrString(rl)
		}
	}

	return left.Equals(right)
}

func simpleLiteralValue(lit *rdf.Literal) string {
	return lit.Value
}

func datatypeOrString(lit *rdf.Literal) string {
	if lit.Language != "" {
		return "@" + lit.Language
	}
	if lit.Datatype == nil {
		return rdf.XSDString.IRI
	}
	return lit.Datatype.IRI
}

// compareTerms orders two terms: numerically when both are numeric,
// otherwise by string form.
func (e *Evaluator) compareTerms(left, right rdf.Term) (int, error) {
	leftNum, leftIsNum := e.extractNumeric(left)
	rightNum, rightIsNum := e.extractNumeric(right)

	if leftIsNum && rightIsNum {
		switch {
		case leftNum < rightNum:
			return -1, nil
		case leftNum > rightNum:
			return 1, nil
		default:
			return 0, nil
		}
	}

	leftStr, err := e.extractString(left)
	if err != nil {
		leftStr = left.String()
	}
	rightStr, err := e.extractString(right)
	if err != nil {
		rightStr = right.String()
	}

	switch {
	case leftStr < rightStr:
		return -1, nil
	case leftStr > rightStr:
		return 1, nil
	default:
		return 0, nil
	}
}

func (e *Evaluator) evaluateArithmetic(op parser.Operator, left, right rdf.Term) (rdf.Term, error) {
	leftVal, leftOk := e.extractNumeric(left)
	rightVal, rightOk := e.extractNumeric(right)
	if !leftOk || !rightOk {
		return nil, fmt.Errorf("arithmetic on non-numeric terms")
	}

	var result float64
	switch op {
	case parser.OpAdd:
		result = leftVal + rightVal
	case parser.OpSubtract:
		result = leftVal - rightVal
	case parser.OpMultiply:
		result = leftVal * rightVal
	case parser.OpDivide:
		if rightVal == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = leftVal / rightVal
	}

	return e.createNumericLiteral(result, left, right), nil
}

// extractNumeric extracts a numeric value from a literal.
func (e *Evaluator) extractNumeric(term rdf.Term) (float64, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return 0, false
	}

	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI,
		"http://www.w3.org/2001/XMLSchema#int",
		"http://www.w3.org/2001/XMLSchema#long":
		intVal, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return 0, false
		}
		return float64(intVal), true

	case rdf.XSDDouble.IRI, rdf.XSDDecimal.IRI,
		"http://www.w3.org/2001/XMLSchema#float":
		val, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return 0, false
		}
		return val, true
	}

	return 0, false
}

// createNumericLiteral builds a result literal, keeping integer typing
// when both inputs are integers and the value is whole.
func (e *Evaluator) createNumericLiteral(value float64, left, right rdf.Term) rdf.Term {
	if value == math.Floor(value) && !math.IsInf(value, 0) {
		if isIntegerLiteral(left) && isIntegerLiteral(right) {
			return rdf.NewIntegerLiteral(int64(value))
		}
	}
	return rdf.NewDoubleLiteral(value)
}

func isIntegerLiteral(term rdf.Term) bool {
	lit, ok := term.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI,
		"http://www.w3.org/2001/XMLSchema#int",
		"http://www.w3.org/2001/XMLSchema#long":
		return true
	}
	return false
}

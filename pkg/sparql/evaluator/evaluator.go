// Package evaluator evaluates SPARQL expressions against variable
// bindings.
package evaluator

import (
	"fmt"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

// Evaluator evaluates SPARQL expressions against bindings.
type Evaluator struct{}

// NewEvaluator creates a new expression evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates an expression against a binding. An error means the
// expression could not be evaluated (type error, unbound variable); per
// SPARQL semantics the caller treats that as an error value, not a
// failure of the whole query.
func (e *Evaluator) Evaluate(expr parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if expr == nil {
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}

	switch ex := expr.(type) {
	case *parser.BinaryExpression:
		return e.evaluateBinaryExpression(ex, binding)
	case *parser.UnaryExpression:
		return e.evaluateUnaryExpression(ex, binding)
	case *parser.VariableExpression:
		return e.evaluateVariableExpression(ex, binding)
	case *parser.LiteralExpression:
		if ex.Literal == nil {
			return nil, fmt.Errorf("literal expression has nil literal")
		}
		return ex.Literal, nil
	case *parser.FunctionCallExpression:
		return e.evaluateFunctionCall(ex, binding)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// EffectiveBooleanValue computes the SPARQL effective boolean value of
// an evaluated expression result.
func (e *Evaluator) EffectiveBooleanValue(term rdf.Term) (bool, error) {
	return e.effectiveBooleanValue(term)
}

// CompareOrder orders two terms for sorting: numerically when both are
// numeric, otherwise by string form.
func (e *Evaluator) CompareOrder(left, right rdf.Term) (int, error) {
	return e.compareTerms(left, right)
}

func (e *Evaluator) evaluateVariableExpression(expr *parser.VariableExpression, binding *store.Binding) (rdf.Term, error) {
	if expr.Variable == nil {
		return nil, fmt.Errorf("variable expression has nil variable")
	}

	value, exists := binding.Vars[expr.Variable.Name]
	if !exists {
		return nil, fmt.Errorf("unbound variable: ?%s", expr.Variable.Name)
	}
	return value, nil
}

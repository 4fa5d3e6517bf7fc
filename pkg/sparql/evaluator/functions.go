package evaluator

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

func (e *Evaluator) evaluateFunctionCall(expr *parser.FunctionCallExpression, binding *store.Binding) (rdf.Term, error) {
	args := expr.Arguments

	switch expr.Function {
	case "BOUND":
		return e.evaluateBound(args, binding)
	case "ISIRI", "ISURI":
		return e.typeCheck(args, binding, func(t rdf.Term) bool {
			_, ok := t.(*rdf.NamedNode)
			return ok
		})
	case "ISBLANK":
		return e.typeCheck(args, binding, func(t rdf.Term) bool {
			_, ok := t.(*rdf.BlankNode)
			return ok
		})
	case "ISLITERAL":
		return e.typeCheck(args, binding, func(t rdf.Term) bool {
			_, ok := t.(*rdf.Literal)
			return ok
		})
	case "ISNUMERIC":
		return e.typeCheck(args, binding, func(t rdf.Term) bool {
			_, ok := e.extractNumeric(t)
			return ok
		})

	case "STR":
		return e.evaluateStr(args, binding)
	case "LANG":
		return e.evaluateLang(args, binding)
	case "DATATYPE":
		return e.evaluateDatatype(args, binding)
	case "STRLEN":
		return e.evaluateStrLen(args, binding)
	case "SUBSTR":
		return e.evaluateSubStr(args, binding)
	case "UCASE":
		return e.stringTransform(args, binding, strings.ToUpper)
	case "LCASE":
		return e.stringTransform(args, binding, strings.ToLower)
	case "CONCAT":
		return e.evaluateConcat(args, binding)
	case "CONTAINS":
		return e.stringPredicate(args, binding, strings.Contains)
	case "STRSTARTS":
		return e.stringPredicate(args, binding, strings.HasPrefix)
	case "STRENDS":
		return e.stringPredicate(args, binding, strings.HasSuffix)
	case "REGEX":
		return e.evaluateRegex(args, binding)
	case "LANGMATCHES":
		return e.evaluateLangMatches(args, binding)
	case "SAMETERM":
		return e.evaluateSameTerm(args, binding)

	case "ABS":
		return e.numericTransform(args, binding, math.Abs)
	case "CEIL":
		return e.numericTransform(args, binding, math.Ceil)
	case "FLOOR":
		return e.numericTransform(args, binding, math.Floor)
	case "ROUND":
		return e.numericTransform(args, binding, math.Round)

	default:
		return nil, fmt.Errorf("unsupported function: %s", expr.Function)
	}
}

func (e *Evaluator) evaluateBound(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("BOUND requires exactly one argument")
	}
	varExpr, ok := args[0].(*parser.VariableExpression)
	if !ok {
		return nil, fmt.Errorf("BOUND requires a variable argument")
	}
	_, bound := binding.Vars[varExpr.Variable.Name]
	return rdf.NewBooleanLiteral(bound), nil
}

func (e *Evaluator) typeCheck(args []parser.Expression, binding *store.Binding, check func(rdf.Term) bool) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type check function requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(check(term)), nil
}

func (e *Evaluator) evaluateStr(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("STR requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}

	switch t := term.(type) {
	case *rdf.NamedNode:
		return rdf.NewLiteral(t.IRI), nil
	case *rdf.Literal:
		return rdf.NewLiteral(t.Value), nil
	default:
		return nil, fmt.Errorf("STR is not defined for %T", term)
	}
}

func (e *Evaluator) evaluateLang(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("LANG requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}

	lit, ok := term.(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("LANG requires a literal argument")
	}
	return rdf.NewLiteral(lit.Language), nil
}

func (e *Evaluator) evaluateDatatype(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("DATATYPE requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}

	lit, ok := term.(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("DATATYPE requires a literal argument")
	}
	if lit.Language != "" {
		return rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"), nil
	}
	if lit.Datatype != nil {
		return lit.Datatype, nil
	}
	return rdf.XSDString, nil
}

func (e *Evaluator) evaluateStrLen(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("STRLEN requires exactly one argument")
	}
	str, err := e.argString(args[0], binding)
	if err != nil {
		return nil, err
	}
	return rdf.NewIntegerLiteral(int64(len([]rune(str)))), nil
}

func (e *Evaluator) evaluateSubStr(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("SUBSTR requires two or three arguments")
	}

	str, err := e.argString(args[0], binding)
	if err != nil {
		return nil, err
	}
	startTerm, err := e.Evaluate(args[1], binding)
	if err != nil {
		return nil, err
	}
	start, ok := e.extractNumeric(startTerm)
	if !ok {
		return nil, fmt.Errorf("SUBSTR start must be numeric")
	}

	runes := []rune(str)
	// Positions are 1-based
	from := int(start) - 1
	if from < 0 {
		from = 0
	}
	if from > len(runes) {
		from = len(runes)
	}

	to := len(runes)
	if len(args) == 3 {
		lengthTerm, err := e.Evaluate(args[2], binding)
		if err != nil {
			return nil, err
		}
		length, ok := e.extractNumeric(lengthTerm)
		if !ok {
			return nil, fmt.Errorf("SUBSTR length must be numeric")
		}
		to = from + int(length)
		if to > len(runes) {
			to = len(runes)
		}
		if to < from {
			to = from
		}
	}

	return rdf.NewLiteral(string(runes[from:to])), nil
}

func (e *Evaluator) stringTransform(args []parser.Expression, binding *store.Binding, transform func(string) string) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("string function requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}

	lit, ok := term.(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("string function requires a literal argument")
	}

	// Transformed value keeps the language tag of the input
	if lit.Language != "" {
		return rdf.NewLiteralWithLanguage(transform(lit.Value), lit.Language), nil
	}
	return rdf.NewLiteral(transform(lit.Value)), nil
}

func (e *Evaluator) evaluateConcat(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	var sb strings.Builder
	for _, arg := range args {
		str, err := e.argString(arg, binding)
		if err != nil {
			return nil, err
		}
		sb.WriteString(str)
	}
	return rdf.NewLiteral(sb.String()), nil
}

func (e *Evaluator) stringPredicate(args []parser.Expression, binding *store.Binding, predicate func(string, string) bool) (rdf.Term, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("string predicate requires exactly two arguments")
	}
	first, err := e.argString(args[0], binding)
	if err != nil {
		return nil, err
	}
	second, err := e.argString(args[1], binding)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(predicate(first, second)), nil
}

func (e *Evaluator) evaluateRegex(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("REGEX requires two or three arguments")
	}

	text, err := e.argString(args[0], binding)
	if err != nil {
		return nil, err
	}
	pattern, err := e.argString(args[1], binding)
	if err != nil {
		return nil, err
	}

	if len(args) == 3 {
		flags, err := e.argString(args[2], binding)
		if err != nil {
			return nil, err
		}
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
		if strings.Contains(flags, "s") {
			pattern = "(?s)" + pattern
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid REGEX pattern: %w", err)
	}
	return rdf.NewBooleanLiteral(re.MatchString(text)), nil
}

func (e *Evaluator) evaluateLangMatches(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("LANGMATCHES requires exactly two arguments")
	}
	lang, err := e.argString(args[0], binding)
	if err != nil {
		return nil, err
	}
	pattern, err := e.argString(args[1], binding)
	if err != nil {
		return nil, err
	}

	if pattern == "*" {
		return rdf.NewBooleanLiteral(lang != ""), nil
	}

	lang = strings.ToLower(lang)
	pattern = strings.ToLower(pattern)
	matched := lang == pattern || strings.HasPrefix(lang, pattern+"-")
	return rdf.NewBooleanLiteral(matched), nil
}

func (e *Evaluator) evaluateSameTerm(args []parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("SAMETERM requires exactly two arguments")
	}
	left, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(args[1], binding)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(left.Equals(right)), nil
}

func (e *Evaluator) numericTransform(args []parser.Expression, binding *store.Binding, transform func(float64) float64) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("numeric function requires exactly one argument")
	}
	term, err := e.Evaluate(args[0], binding)
	if err != nil {
		return nil, err
	}
	val, ok := e.extractNumeric(term)
	if !ok {
		return nil, fmt.Errorf("numeric function requires a numeric argument")
	}

	result := transform(val)
	if isIntegerLiteral(term) {
		return rdf.NewIntegerLiteral(int64(result)), nil
	}
	return rdf.NewDoubleLiteral(result), nil
}

// argString evaluates an argument and extracts its lexical string value.
func (e *Evaluator) argString(arg parser.Expression, binding *store.Binding) (string, error) {
	term, err := e.Evaluate(arg, binding)
	if err != nil {
		return "", err
	}
	return e.extractString(term)
}

func (e *Evaluator) extractString(term rdf.Term) (string, error) {
	switch t := term.(type) {
	case *rdf.Literal:
		return t.Value, nil
	case *rdf.NamedNode:
		return t.IRI, nil
	default:
		return "", fmt.Errorf("cannot extract string from %T", term)
	}
}

// Package executor executes parsed SPARQL queries against a triple
// store using the Volcano iterator model.
package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sjhuskey/copticqa/pkg/rdf"
	"github.com/sjhuskey/copticqa/pkg/sparql/evaluator"
	"github.com/sjhuskey/copticqa/pkg/sparql/parser"
	"github.com/sjhuskey/copticqa/pkg/store"
)

// Executor executes SPARQL queries.
type Executor struct {
	store     *store.TripleStore
	evaluator *evaluator.Evaluator
}

// NewExecutor creates a new query executor.
func NewExecutor(ts *store.TripleStore) *Executor {
	return &Executor{
		store:     ts,
		evaluator: evaluator.NewEvaluator(),
	}
}

// QueryResult represents the result of a query.
type QueryResult interface {
	resultType()
}

// SelectResult represents the result of a SELECT query. Variables holds
// the column order; Bindings holds one entry per solution row.
type SelectResult struct {
	Variables []string
	Bindings  []*store.Binding
}

func (r *SelectResult) resultType() {}

// AskResult represents the result of an ASK query.
type AskResult struct {
	Result bool
}

func (r *AskResult) resultType() {}

// Execute executes a parsed query.
func (e *Executor) Execute(query *parser.Query) (QueryResult, error) {
	switch query.QueryType {
	case parser.QueryTypeSelect:
		return e.executeSelect(query.Select)
	case parser.QueryTypeAsk:
		return e.executeAsk(query.Ask)
	default:
		return nil, fmt.Errorf("unsupported query type")
	}
}

func (e *Executor) executeSelect(query *parser.SelectQuery) (*SelectResult, error) {
	iter, err := e.patternIterator(query.Where, store.NewBinding())
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var rows []*store.Binding
	for iter.Next() {
		rows = append(rows, iter.Binding().Clone())
	}

	hasAggregates := false
	for _, item := range query.Projection {
		if item.Aggregate != nil {
			hasAggregates = true
		}
	}

	if hasAggregates || len(query.GroupBy) > 0 {
		rows, err = e.aggregate(query, rows)
		if err != nil {
			return nil, err
		}
	}

	if len(query.OrderBy) > 0 {
		e.sortRows(rows, query.OrderBy)
	}

	variables := e.resultVariables(query)
	rows = projectRows(rows, query.Projection)

	if query.Distinct {
		rows = distinctRows(rows)
	}

	if query.Offset != nil {
		if *query.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[*query.Offset:]
		}
	}
	if query.Limit != nil && *query.Limit < len(rows) {
		rows = rows[:*query.Limit]
	}

	return &SelectResult{Variables: variables, Bindings: rows}, nil
}

func (e *Executor) executeAsk(query *parser.AskQuery) (*AskResult, error) {
	iter, err := e.patternIterator(query.Where, store.NewBinding())
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	return &AskResult{Result: iter.Next()}, nil
}

// resultVariables determines the column order of the result.
func (e *Executor) resultVariables(query *parser.SelectQuery) []string {
	if query.Projection == nil {
		return extractVariables(query.Where)
	}
	names := make([]string, len(query.Projection))
	for i, item := range query.Projection {
		names[i] = item.Name()
	}
	return names
}

// extractVariables collects variables from a graph pattern in order of
// first appearance (for SELECT *).
func extractVariables(pattern *parser.GraphPattern) []string {
	var names []string
	seen := make(map[string]bool)

	add := func(tov parser.TermOrVariable) {
		if tov.IsVariable() && !seen[tov.Variable.Name] {
			seen[tov.Variable.Name] = true
			names = append(names, tov.Variable.Name)
		}
	}

	var walk func(p *parser.GraphPattern)
	walk = func(p *parser.GraphPattern) {
		for _, tp := range p.Patterns {
			add(tp.Subject)
			add(tp.Predicate)
			add(tp.Object)
		}
		for _, child := range p.Children {
			walk(child)
		}
	}
	walk(pattern)

	return names
}

// bindingIterator iterates over solution bindings.
type bindingIterator interface {
	Next() bool
	Binding() *store.Binding
	Close() error
}

// patternIterator builds the iterator tree for a group graph pattern,
// seeded with bindings already established by an enclosing group.
func (e *Executor) patternIterator(pattern *parser.GraphPattern, seed *store.Binding) (bindingIterator, error) {
	var iter bindingIterator = &singletonIterator{binding: seed}

	// Basic graph pattern: left-deep chain of scans, each seeded by the
	// bindings accumulated so far.
	for _, tp := range pattern.Patterns {
		iter = &joinIterator{
			executor: e,
			left:     iter,
			pattern:  tp,
		}
	}

	// Child groups: OPTIONAL, UNION, and plain nested groups.
	for _, child := range pattern.Children {
		switch child.Type {
		case parser.GraphPatternTypeOptional:
			iter = &optionalIterator{executor: e, left: iter, pattern: child}
		case parser.GraphPatternTypeUnion:
			iter = &unionIterator{executor: e, left: iter, branches: child.Children}
		default:
			iter = &groupIterator{executor: e, left: iter, pattern: child}
		}
	}

	// Filters apply to the whole group.
	for _, filter := range pattern.Filters {
		iter = &filterIterator{
			input:     iter,
			filter:    filter,
			evaluator: e.evaluator,
		}
	}

	return iter, nil
}

// singletonIterator yields exactly one binding.
type singletonIterator struct {
	binding *store.Binding
	done    bool
}

func (it *singletonIterator) Next() bool {
	if it.done {
		return false
	}
	it.done = true
	return true
}

func (it *singletonIterator) Binding() *store.Binding { return it.binding }
func (it *singletonIterator) Close() error            { return nil }

// scanIterator scans the store for one triple pattern with the parent
// binding's variables substituted in, and extends that binding.
type scanIterator struct {
	tripleIter store.TripleIterator
	pattern    *parser.TriplePattern
	parent     *store.Binding
	binding    *store.Binding
}

func (e *Executor) newScanIterator(tp *parser.TriplePattern, parent *store.Binding) (*scanIterator, error) {
	pattern := &store.Pattern{
		Subject:   resolveTerm(tp.Subject, parent),
		Predicate: resolveTerm(tp.Predicate, parent),
		Object:    resolveTerm(tp.Object, parent),
	}

	tripleIter, err := e.store.Query(pattern)
	if err != nil {
		return nil, err
	}

	return &scanIterator{
		tripleIter: tripleIter,
		pattern:    tp,
		parent:     parent,
	}, nil
}

// resolveTerm converts a pattern position to a store query argument,
// substituting variables already bound in the parent binding.
func resolveTerm(tov parser.TermOrVariable, parent *store.Binding) any {
	if !tov.IsVariable() {
		return tov.Term
	}
	if bound, ok := parent.Vars[tov.Variable.Name]; ok {
		return bound
	}
	return store.NewVariable(tov.Variable.Name)
}

func (it *scanIterator) Next() bool {
	for it.tripleIter.Next() {
		triple, err := it.tripleIter.Triple()
		if err != nil {
			return false
		}

		binding := it.parent.Clone()
		if it.bind(binding, it.pattern.Subject, triple.Subject) &&
			it.bind(binding, it.pattern.Predicate, triple.Predicate) &&
			it.bind(binding, it.pattern.Object, triple.Object) {
			it.binding = binding
			return true
		}
	}
	return false
}

// bind records a variable binding, rejecting rows where a repeated
// variable would take two different values.
func (it *scanIterator) bind(binding *store.Binding, tov parser.TermOrVariable, term rdf.Term) bool {
	if !tov.IsVariable() {
		return true
	}
	name := tov.Variable.Name
	if existing, ok := binding.Vars[name]; ok {
		return existing.Equals(term)
	}
	binding.Vars[name] = term
	return true
}

func (it *scanIterator) Binding() *store.Binding { return it.binding }
func (it *scanIterator) Close() error            { return it.tripleIter.Close() }

// joinIterator joins the left input with a triple pattern scan, pushing
// each left binding into the scan as constants.
type joinIterator struct {
	executor *Executor
	left     bindingIterator
	pattern  *parser.TriplePattern
	current  *scanIterator
	binding  *store.Binding
}

func (it *joinIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				it.binding = it.current.Binding()
				return true
			}
			_ = it.current.Close()
			it.current = nil
		}

		if !it.left.Next() {
			return false
		}

		scan, err := it.executor.newScanIterator(it.pattern, it.left.Binding())
		if err != nil {
			return false
		}
		it.current = scan
	}
}

func (it *joinIterator) Binding() *store.Binding { return it.binding }

func (it *joinIterator) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.left.Close()
}

// groupIterator joins the left input with a nested group pattern.
type groupIterator struct {
	executor *Executor
	left     bindingIterator
	pattern  *parser.GraphPattern
	current  bindingIterator
	binding  *store.Binding
}

func (it *groupIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				it.binding = it.current.Binding()
				return true
			}
			_ = it.current.Close()
			it.current = nil
		}

		if !it.left.Next() {
			return false
		}

		inner, err := it.executor.patternIterator(it.pattern, it.left.Binding().Clone())
		if err != nil {
			return false
		}
		it.current = inner
	}
}

func (it *groupIterator) Binding() *store.Binding { return it.binding }

func (it *groupIterator) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.left.Close()
}

// optionalIterator implements a left join: rows from the left input are
// extended by the optional pattern when it matches and passed through
// unchanged when it does not.
type optionalIterator struct {
	executor *Executor
	left     bindingIterator
	pattern  *parser.GraphPattern
	current  bindingIterator
	matched  bool
	leftRow  *store.Binding
	binding  *store.Binding
}

func (it *optionalIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				it.matched = true
				it.binding = it.current.Binding()
				return true
			}
			_ = it.current.Close()
			it.current = nil
			if !it.matched {
				it.binding = it.leftRow
				return true
			}
		}

		if !it.left.Next() {
			return false
		}

		it.leftRow = it.left.Binding().Clone()
		it.matched = false
		inner, err := it.executor.patternIterator(it.pattern, it.leftRow.Clone())
		if err != nil {
			return false
		}
		it.current = inner
	}
}

func (it *optionalIterator) Binding() *store.Binding { return it.binding }

func (it *optionalIterator) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.left.Close()
}

// unionIterator evaluates each branch against every left binding and
// concatenates the results.
type unionIterator struct {
	executor *Executor
	left     bindingIterator
	branches []*parser.GraphPattern
	leftRow  *store.Binding
	branch   int
	current  bindingIterator
	binding  *store.Binding
}

func (it *unionIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				it.binding = it.current.Binding()
				return true
			}
			_ = it.current.Close()
			it.current = nil
		}

		// Advance to the next branch of the current left row, or pull
		// the next left row.
		if it.leftRow == nil || it.branch >= len(it.branches) {
			if !it.left.Next() {
				return false
			}
			it.leftRow = it.left.Binding().Clone()
			it.branch = 0
		}

		inner, err := it.executor.patternIterator(it.branches[it.branch], it.leftRow.Clone())
		it.branch++
		if err != nil {
			return false
		}
		it.current = inner
	}
}

func (it *unionIterator) Binding() *store.Binding { return it.binding }

func (it *unionIterator) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.left.Close()
}

// filterIterator passes through bindings whose filter expression has an
// effective boolean value of true. Evaluation errors drop the binding.
type filterIterator struct {
	input     bindingIterator
	filter    *parser.Filter
	evaluator *evaluator.Evaluator
}

func (it *filterIterator) Next() bool {
	for it.input.Next() {
		result, err := it.evaluator.Evaluate(it.filter.Expression, it.input.Binding())
		if err != nil {
			continue
		}
		ebv, err := it.evaluator.EffectiveBooleanValue(result)
		if err != nil || !ebv {
			continue
		}
		return true
	}
	return false
}

func (it *filterIterator) Binding() *store.Binding { return it.input.Binding() }
func (it *filterIterator) Close() error            { return it.input.Close() }

// aggregate groups rows by the GROUP BY variables and computes the
// aggregate projection items per group.
func (e *Executor) aggregate(query *parser.SelectQuery, rows []*store.Binding) ([]*store.Binding, error) {
	type group struct {
		key  *store.Binding
		rows []*store.Binding
	}

	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		key := store.NewBinding()
		var sig strings.Builder
		for _, v := range query.GroupBy {
			if term, ok := row.Vars[v.Name]; ok {
				key.Vars[v.Name] = term
				sig.WriteString(v.Name + "=" + termKey(term) + ";")
			} else {
				sig.WriteString(v.Name + "=;")
			}
		}
		s := sig.String()
		g, ok := groups[s]
		if !ok {
			g = &group{key: key}
			groups[s] = g
			order = append(order, s)
		}
		g.rows = append(g.rows, row)
	}

	// With no GROUP BY, aggregates run over all rows as a single group,
	// including the empty input.
	if len(query.GroupBy) == 0 && len(groups) == 0 {
		groups[""] = &group{key: store.NewBinding()}
		order = append(order, "")
	}

	var result []*store.Binding
	for _, s := range order {
		g := groups[s]
		out := g.key.Clone()

		for _, item := range query.Projection {
			if item.Aggregate == nil {
				continue
			}
			value, err := e.computeAggregate(item.Aggregate, g.rows)
			if err != nil {
				return nil, err
			}
			out.Vars[item.Aggregate.As.Name] = value
		}
		result = append(result, out)
	}

	return result, nil
}

func (e *Executor) computeAggregate(agg *parser.Aggregate, rows []*store.Binding) (rdf.Term, error) {
	// Collect the argument values, skipping rows where the argument
	// does not evaluate.
	var values []rdf.Term
	if agg.Argument == nil {
		// COUNT(*) counts rows
		if agg.Function != "COUNT" {
			return nil, fmt.Errorf("'*' is only valid in COUNT")
		}
		return rdf.NewIntegerLiteral(int64(len(rows))), nil
	}

	for _, row := range rows {
		value, err := e.evaluator.Evaluate(agg.Argument, row)
		if err != nil {
			continue
		}
		values = append(values, value)
	}

	if agg.Distinct {
		seen := make(map[string]bool)
		var unique []rdf.Term
		for _, v := range values {
			k := termKey(v)
			if !seen[k] {
				seen[k] = true
				unique = append(unique, v)
			}
		}
		values = unique
	}

	switch agg.Function {
	case "COUNT":
		return rdf.NewIntegerLiteral(int64(len(values))), nil

	case "SUM", "AVG":
		sum := 0.0
		allInt := true
		count := 0
		for _, v := range values {
			lit, ok := v.(*rdf.Literal)
			if !ok {
				continue
			}
			num, ok := numericValue(lit)
			if !ok {
				continue
			}
			sum += num
			count++
			if lit.Datatype == nil || lit.Datatype.IRI != rdf.XSDInteger.IRI {
				allInt = false
			}
		}
		if agg.Function == "AVG" {
			if count == 0 {
				return rdf.NewIntegerLiteral(0), nil
			}
			return rdf.NewDoubleLiteral(sum / float64(count)), nil
		}
		if allInt {
			return rdf.NewIntegerLiteral(int64(sum)), nil
		}
		return rdf.NewDoubleLiteral(sum), nil

	case "MIN", "MAX":
		if len(values) == 0 {
			return rdf.NewLiteral(""), nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, err := e.evaluator.CompareOrder(v, best)
			if err != nil {
				continue
			}
			if (agg.Function == "MIN" && cmp < 0) || (agg.Function == "MAX" && cmp > 0) {
				best = v
			}
		}
		return best, nil

	default:
		return nil, fmt.Errorf("unsupported aggregate function: %s", agg.Function)
	}
}

func numericValue(lit *rdf.Literal) (float64, bool) {
	if lit.Datatype == nil {
		return 0, false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDDouble.IRI:
		var f float64
		if _, err := fmt.Sscanf(lit.Value, "%g", &f); err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// sortRows sorts rows in place per the ORDER BY conditions. Unbound
// values sort before bound ones.
func (e *Executor) sortRows(rows []*store.Binding, conditions []*parser.OrderCondition) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cond := range conditions {
			left, leftErr := e.evaluator.Evaluate(cond.Expression, rows[i])
			right, rightErr := e.evaluator.Evaluate(cond.Expression, rows[j])

			if leftErr != nil && rightErr != nil {
				continue
			}
			if leftErr != nil {
				return cond.Ascending
			}
			if rightErr != nil {
				return !cond.Ascending
			}

			cmp, err := e.evaluator.CompareOrder(left, right)
			if err != nil || cmp == 0 {
				continue
			}
			if cond.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

// projectRows trims each row to the projected variables. A nil
// projection (SELECT *) passes rows through unchanged.
func projectRows(rows []*store.Binding, projection []*parser.ProjectionItem) []*store.Binding {
	if projection == nil {
		return rows
	}

	projected := make([]*store.Binding, len(rows))
	for i, row := range rows {
		out := store.NewBinding()
		for _, item := range projection {
			name := item.Name()
			if term, ok := row.Vars[name]; ok {
				out.Vars[name] = term
			}
		}
		projected[i] = out
	}
	return projected
}

// distinctRows removes duplicate rows.
func distinctRows(rows []*store.Binding) []*store.Binding {
	seen := make(map[string]bool)
	var unique []*store.Binding

	for _, row := range rows {
		sig := bindingSignature(row)
		if !seen[sig] {
			seen[sig] = true
			unique = append(unique, row)
		}
	}
	return unique
}

func bindingSignature(binding *store.Binding) string {
	parts := make([]string, 0, len(binding.Vars))
	for name, term := range binding.Vars {
		parts = append(parts, name+"="+termKey(term))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func termKey(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "iri:" + t.IRI
	case *rdf.BlankNode:
		return "blank:" + t.ID
	case *rdf.Literal:
		key := "lit:" + t.Value
		if t.Language != "" {
			key += "@" + t.Language
		}
		if t.Datatype != nil {
			key += "^^" + t.Datatype.IRI
		}
		return key
	default:
		return fmt.Sprintf("other:%v", term)
	}
}

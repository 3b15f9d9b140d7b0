package jsonpath

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Matcher is an immutable, thread-safe, parsed filter query. Matches
// is pure and side-effect-free: evaluation state is entirely
// stack-local, so the same Matcher can be shared across goroutines.
type Matcher struct {
	query *Query
}

// NewMatcher parses query and returns a ready-to-use Matcher.
func NewMatcher(query string) (*Matcher, error) {
	q, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return &Matcher{query: q}, nil
}

// Matches evaluates m against a JSON document.
func (m *Matcher) Matches(doc []byte) (bool, error) {
	if m.query.AlwaysTrue {
		return true, nil
	}

	var root any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return false, err
	}

	return evalComposed(m.query.Root, root), nil
}

// errDeepSegment is returned internally when a PathName resolution
// hits a deep ('..') segment, which the core rejects at evaluation
// time per spec.md §4.2.
var errDeepSegment = errors.New("jsonpath: deep path segments are not supported during evaluation")

// errNotImplemented is returned internally for the reserved =~
// operator (Design Note c).
var errNotImplemented = errors.New("jsonpath: operator not implemented")

// absent represents "no value at this path", distinct from an
// explicit JSON null.
type absent struct{}

// evalComposed implements the strictly left-to-right, short-
// circuiting connector evaluation described in spec.md §4.2.
func evalComposed(c Composed, doc any) bool {
	var running bool

	for i, expr := range c.Exprs {
		if i == 0 {
			running = evalExpr(expr, doc)
			continue
		}

		switch expr.Connector {
		case ConnectorAnd:
			if !running {
				return false
			}
			running = running && evalExpr(expr, doc)
		case ConnectorOr:
			if running {
				return true
			}
			running = running || evalExpr(expr, doc)
		default:
			// Malformed AST (only the first Expr may carry
			// ConnectorNone); treat conservatively as AND.
			running = running && evalExpr(expr, doc)
		}
	}

	return running
}

func evalExpr(e Expr, doc any) bool {
	if e.Nested != nil {
		return evalComposed(*e.Nested, doc)
	}
	return evalLeaf(*e.Leaf, doc)
}

// evalLeaf evaluates a single predicate. Every structural error is
// caught here and folded to false, per spec.md §4.2/§7's error
// policy: malformed or partially-present tokens must never panic or
// short-circuit authorization by erroring out of the whole check.
func evalLeaf(p Predicate, doc any) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("jsonpath: recovered panic evaluating predicate, treating as false")
			result = false
		}
	}()

	ok, err := dispatch(p, doc)
	if err != nil {
		log.Debug().Err(err).Msg("jsonpath: predicate evaluation error, treating as false")
		return false
	}
	return ok
}

func dispatch(p Predicate, doc any) (bool, error) {
	switch p.Op {
	case OpEq:
		return evalEq(p.Left, p.Right, doc)
	case OpNeq:
		eq, err := evalEq(p.Left, p.Right, doc)
		if err != nil {
			return false, err
		}
		return !eq, nil
	case OpLt:
		return evalOrdered(p.Left, p.Right, doc, func(c int) bool { return c < 0 })
	case OpGt:
		return evalOrdered(p.Left, p.Right, doc, func(c int) bool { return c > 0 })
	case OpLte:
		gt, err := evalOrdered(p.Left, p.Right, doc, func(c int) bool { return c > 0 })
		if err != nil {
			return false, err
		}
		return !gt, nil
	case OpGte:
		lt, err := evalOrdered(p.Left, p.Right, doc, func(c int) bool { return c < 0 })
		if err != nil {
			return false, err
		}
		return !lt, nil
	case OpIn:
		return evalIn(p.Left, p.Right, doc)
	case OpNin:
		in, err := evalIn(p.Left, p.Right, doc)
		if err != nil {
			return false, err
		}
		return !in, nil
	case OpAnyOf:
		return evalAnyOf(p.Left, p.Right, doc)
	case OpNoneOf:
		some, err := evalAnyOf(p.Left, p.Right, doc)
		if err != nil {
			return false, err
		}
		return !some, nil
	case OpRegex:
		return false, errNotImplemented
	default:
		return false, errors.New("jsonpath: unknown operator")
	}
}

// resolveOperand turns an Operand into a concrete value: a resolved
// path's value (or absent{}), a string, a *big.Rat for numbers, nil
// for the null literal, or a []any for lists (each element itself
// resolved).
func resolveOperand(o Operand, doc any) (any, error) {
	switch o.Kind {
	case OperandPath:
		return resolvePath(o.Path, doc)
	case OperandString:
		return o.Str, nil
	case OperandNumber:
		r, ok := new(big.Rat).SetString(o.Num)
		if !ok {
			return nil, errors.New("jsonpath: invalid number literal")
		}
		return r, nil
	case OperandNull:
		return nil, nil
	case OperandList:
		vals := make([]any, 0, len(o.List))
		for _, elem := range o.List {
			v, err := resolveOperand(elem, doc)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	default:
		return nil, errors.New("jsonpath: unknown operand kind")
	}
}

// resolvePath descends shallow segments into doc. A missing segment
// yields absent{}; a deep segment is a hard evaluation error.
func resolvePath(path []Segment, doc any) (any, error) {
	cur := doc
	for _, seg := range path {
		if seg.Deep {
			return nil, errDeepSegment
		}

		m, ok := cur.(map[string]any)
		if !ok {
			return absent{}, nil
		}

		v, present := m[seg.Name]
		if !present {
			return absent{}, nil
		}
		cur = v
	}
	return cur, nil
}

// evalEq implements the equality rules of spec.md §4.2. The left
// operand must be a PathName; anything else is an evaluation error.
func evalEq(left, right Operand, doc any) (bool, error) {
	if left.Kind != OperandPath {
		return false, errors.New("jsonpath: left-hand side of a predicate must be a path")
	}

	lv, err := resolvePath(left.Path, doc)
	if err != nil {
		return false, err
	}

	switch right.Kind {
	case OperandPath:
		rv, err := resolvePath(right.Path, doc)
		if err != nil {
			return false, err
		}
		return pathEqPath(lv, rv), nil
	case OperandString:
		s, text, ok := asString(lv)
		return ok && s && text == right.Str, nil
	case OperandNumber:
		return numEq(lv, right.Num)
	case OperandNull:
		return isAbsentOrNull(lv), nil
	default:
		return false, errors.New("jsonpath: unsupported right-hand operand for ==")
	}
}

// pathEqPath compares two resolved path values: two absent attributes
// are unequal; absent == explicit null is true; otherwise deep JSON
// equality.
func pathEqPath(a, b any) bool {
	_, aAbsent := a.(absent)
	_, bAbsent := b.(absent)

	if aAbsent && bAbsent {
		return false
	}
	if aAbsent {
		return b == nil
	}
	if bAbsent {
		return a == nil
	}

	return deepJSONEqual(a, b)
}

func deepJSONEqual(a, b any) bool {
	ab, errA := json.Marshal(normalizeForCompare(a))
	bb, errB := json.Marshal(normalizeForCompare(b))
	if errA != nil || errB != nil {
		return false
	}

	var av, bv any
	if err := json.Unmarshal(ab, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(bb, &bv); err != nil {
		return false
	}
	return deepEqualValue(av, bv)
}

// normalizeForCompare converts json.Number to a canonical decimal
// string so big-vs-small literal forms compare equal.
func normalizeForCompare(v any) any {
	switch t := v.(type) {
	case json.Number:
		r, ok := new(big.Rat).SetString(t.String())
		if !ok {
			return t.String()
		}
		return r.RatString()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForCompare(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForCompare(val)
		}
		return out
	default:
		return v
	}
}

func deepEqualValue(a, b any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return bytes.Equal(aj, bj)
}

func asString(v any) (isString bool, text string, ok bool) {
	s, isStr := v.(string)
	return isStr, s, isStr
}

func numEq(v any, literal string) (bool, error) {
	n, isNum := asNumber(v)
	if !isNum {
		return false, nil
	}

	lit, ok := new(big.Rat).SetString(literal)
	if !ok {
		return false, errors.New("jsonpath: invalid number literal")
	}

	return n.Cmp(lit) == 0, nil
}

func asNumber(v any) (*big.Rat, bool) {
	jn, ok := v.(json.Number)
	if !ok {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(jn.String())
	if !ok {
		return nil, false
	}
	return r, true
}

func isAbsentOrNull(v any) bool {
	if _, absentVal := v.(absent); absentVal {
		return true
	}
	return v == nil
}

// evalOrdered implements <, > (and, via negation in dispatch, <=,
// >=). Defined only for textual/textual and numeric/numeric pairs;
// any other combination is an evaluation error.
func evalOrdered(left, right Operand, doc any, test func(cmp int) bool) (bool, error) {
	lv, err := resolveOperand(left, doc)
	if err != nil {
		return false, err
	}
	rv, err := resolveOperand(right, doc)
	if err != nil {
		return false, err
	}

	ls, lIsStr := lv.(string)
	rs, rIsStr := rv.(string)
	if lIsStr && rIsStr {
		switch {
		case ls < rs:
			return test(-1), nil
		case ls > rs:
			return test(1), nil
		default:
			return test(0), nil
		}
	}

	ln, lIsNum := toFloatOperand(lv)
	rn, rIsNum := toFloatOperand(rv)
	if lIsNum && rIsNum {
		// Narrowing to IEEE-754 double precision per Design Note (c):
		// ordered compare accepts precision loss, unlike ==/!=.
		switch {
		case ln < rn:
			return test(-1), nil
		case ln > rn:
			return test(1), nil
		default:
			return test(0), nil
		}
	}

	return false, errors.New("jsonpath: ordered comparison requires two strings or two numbers")
}

func toFloatOperand(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case *big.Rat:
		f, _ := t.Float64()
		return f, true
	default:
		return 0, false
	}
}

// evalIn implements containment: left may be PathName, String,
// Number, or Null; right may be a PathName resolving to an array or a
// List literal. A non-array right-hand scalar is false, not an error.
func evalIn(left, right Operand, doc any) (bool, error) {
	lv, err := resolveOperand(left, doc)
	if err != nil {
		return false, err
	}

	rv, err := resolveOperand(right, doc)
	if err != nil {
		return false, err
	}

	arr, ok := rv.([]any)
	if !ok {
		return false, nil
	}

	return lo.SomeBy(arr, func(elem any) bool {
		return leafValueEqual(lv, elem)
	}), nil
}

// evalAnyOf implements array-any: left must be PathName resolving to
// an array, right must be a List literal.
func evalAnyOf(left, right Operand, doc any) (bool, error) {
	if left.Kind != OperandPath {
		return false, errors.New("jsonpath: anyof requires a path on the left")
	}
	if right.Kind != OperandList {
		return false, errors.New("jsonpath: anyof requires a list on the right")
	}

	lv, err := resolvePath(left.Path, doc)
	if err != nil {
		return false, err
	}

	arr, ok := lv.([]any)
	if !ok {
		return false, nil
	}

	rv, err := resolveOperand(right, doc)
	if err != nil {
		return false, err
	}
	list := rv.([]any)

	return lo.SomeBy(arr, func(elem any) bool {
		return lo.SomeBy(list, func(want any) bool {
			return leafValueEqual(elem, want)
		})
	}), nil
}

// leafValueEqual compares a resolved JSON element (string, number,
// null, absent) against a resolved operand value using each
// element's natural equality: textual, numeric (decimal), or null.
func leafValueEqual(a, b any) bool {
	if isAbsentOrNull(a) && isAbsentOrNull(b) {
		return true
	}
	if isAbsentOrNull(a) != isAbsentOrNull(b) {
		return false
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr || bIsStr {
		return aIsStr && bIsStr && as == bs
	}

	an, aIsNum := asNumberAny(a)
	bn, bIsNum := asNumberAny(b)
	if aIsNum && bIsNum {
		return an.Cmp(bn) == 0
	}

	return deepJSONEqual(a, b)
}

func asNumberAny(v any) (*big.Rat, bool) {
	switch t := v.(type) {
	case json.Number:
		return asNumber(t)
	case *big.Rat:
		return t, true
	default:
		return nil, false
	}
}

package queryir

import "fmt"

// Eval reports whether r satisfies p. Predicates are validated first.
func Eval(p Predicate, r Row) (bool, error) {
	if err := Validate(p); err != nil {
		return false, err
	}
	return eval(p, r), nil
}

func eval(p Predicate, r Row) bool {
	switch v := p.(type) {
	case nil:
		return true
	case Equals:
		return equal(r.value(v.Field), v.Value)
	case *Equals:
		return eval(*v, r)
	case NotEquals:
		got := r.value(v.Field)
		return got != nil && !equal(got, v.Value)
	case *NotEquals:
		return eval(*v, r)
	case In:
		got := r.value(v.Field)
		for _, want := range v.Values {
			if equal(got, want) {
				return true
			}
		}
		return false
	case *In:
		return eval(*v, r)
	case Between:
		n, ok := r.value(v.Field).(int64)
		return ok && v.Min <= n && n <= v.Max
	case *Between:
		return eval(*v, r)
	case And:
		for _, sub := range v.Predicates {
			if !eval(sub, r) {
				return false
			}
		}
		return true
	case *And:
		return eval(*v, r)
	default:
		panic(fmt.Sprintf("queryir: unvalidated predicate %T", p))
	}
}

// equal compares a row value with a literal. NULL equals nothing.
func equal(got, want any) bool {
	if got == nil {
		return false
	}
	return got == want
}

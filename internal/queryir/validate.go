package queryir

import (
	"fmt"
)

// Validate checks that p only references known fields and that every value
// has the type of its field. A nil predicate is valid and matches all rows.
func Validate(p Predicate) error {
	switch v := p.(type) {
	case nil:
		return nil
	case Equals:
		return checkValue(v.Field, v.Value)
	case *Equals:
		return checkValue(v.Field, v.Value)
	case NotEquals:
		return checkValue(v.Field, v.Value)
	case *NotEquals:
		return checkValue(v.Field, v.Value)
	case In:
		return checkIn(v)
	case *In:
		return checkIn(*v)
	case Between:
		return checkBetween(v)
	case *Between:
		return checkBetween(*v)
	case And:
		return checkAnd(v)
	case *And:
		return checkAnd(*v)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func checkIn(in In) error {
	for i, val := range in.Values {
		if err := checkValue(in.Field, val); err != nil {
			return fmt.Errorf("in[%d]: %w", i, err)
		}
	}
	return nil
}

func checkBetween(b Between) error {
	k, ok := fieldKinds[b.Field]
	if !ok {
		return fmt.Errorf("unknown field %q", b.Field)
	}
	if k != kindInt {
		return fmt.Errorf("between on non-integer field %q", b.Field)
	}
	return nil
}

func checkAnd(and And) error {
	for i, p := range and.Predicates {
		if err := Validate(p); err != nil {
			return fmt.Errorf("and[%d]: %w", i, err)
		}
	}
	return nil
}

func checkValue(f Field, val any) error {
	k, ok := fieldKinds[f]
	if !ok {
		return fmt.Errorf("unknown field %q", f)
	}
	switch val.(type) {
	case string:
		if k != kindText {
			return fmt.Errorf("field %q: string value for integer field", f)
		}
	case int64:
		if k != kindInt {
			return fmt.Errorf("field %q: integer value for text field", f)
		}
	default:
		return fmt.Errorf("field %q: unsupported value type %T", f, val)
	}
	return nil
}

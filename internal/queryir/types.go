package queryir

// Field names a filterable attribute of a vector row.
//
// A vector row is a vector joined with its instance, file version and file.
type Field string

const (
	FieldVectorType    Field = "vector_type"
	FieldFileVersionID Field = "file_version_id"
	FieldFileID        Field = "file_id"
	FieldProjectID     Field = "project_id"
	FieldInstanceType  Field = "instance_type"
	FieldOffset        Field = "offset"
	FieldSize          Field = "size"
)

// fieldKinds records whether a field holds text or an integer.
var fieldKinds = map[Field]kind{
	FieldVectorType:    kindText,
	FieldFileVersionID: kindInt,
	FieldFileID:        kindInt,
	FieldProjectID:     kindInt,
	FieldInstanceType:  kindText,
	FieldOffset:        kindInt,
	FieldSize:          kindInt,
}

type kind int

const (
	kindText kind = iota
	kindInt
)

// Predicate is a filter condition over vector rows.
type Predicate interface {
	predicateNode()
}

// Equals matches rows where Field = Value.
// Value is a string for text fields and an int64 for integer fields.
type Equals struct {
	Field Field
	Value any
}

// NotEquals matches rows where Field <> Value.
type NotEquals struct {
	Field Field
	Value any
}

// In matches rows where Field is one of Values.
// An empty list matches nothing.
type In struct {
	Field  Field
	Values []any
}

// Between matches rows where Min <= Field <= Max. Integer fields only.
type Between struct {
	Field Field
	Min   int64
	Max   int64
}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()    {}
func (NotEquals) predicateNode() {}
func (In) predicateNode()        {}
func (Between) predicateNode()   {}
func (And) predicateNode()       {}

// All returns the conjunction of preds. Nil entries are dropped and nested
// And values are flattened, so composing filters step by step stays shallow.
func All(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case And:
			out = append(out, v.Predicates...)
		case *And:
			if v != nil {
				out = append(out, v.Predicates...)
			}
		default:
			out = append(out, p)
		}
	}
	return And{Predicates: out}
}

// Row is the in-memory shape of a vector row, used by Eval.
type Row struct {
	VectorType    string
	FileVersionID int64
	FileID        int64
	ProjectID     *int64
	InstanceType  string
	Offset        *int64
	Size          int64
}

// value returns the field value of r, or nil when it is NULL.
func (r Row) value(f Field) any {
	switch f {
	case FieldVectorType:
		return r.VectorType
	case FieldFileVersionID:
		return r.FileVersionID
	case FieldFileID:
		return r.FileID
	case FieldProjectID:
		if r.ProjectID == nil {
			return nil
		}
		return *r.ProjectID
	case FieldInstanceType:
		return r.InstanceType
	case FieldOffset:
		if r.Offset == nil {
			return nil
		}
		return *r.Offset
	case FieldSize:
		return r.Size
	}
	return nil
}

package multiq

import (
	"strings"

	"github.com/autom8ter/multiq/errors"
	"github.com/autom8ter/multiq/util"
	"github.com/spf13/cast"
)

// Predicate is the compiled conjunction of a query's filters, evaluated once
// per candidate document inside the computation job's map stage
type Predicate struct {
	expr string
	eval func(*Document) bool
}

// Expr returns the predicate as a diagnostic expression string - string
// literals quoted, numeric literals bare, conditions joined with &&
func (p Predicate) Expr() string {
	return p.expr
}

// Match evaluates the predicate against the document
func (p Predicate) Match(doc *Document) bool {
	return p.eval(doc)
}

// compilePredicate compiles the filters into a single predicate equivalent to
// the logical AND of each filter's condition. Zero filters compile to the
// constant true. The predicate language is a pure conjunction - there is no
// OR, negation or grouping.
func compilePredicate(filters []Filter) (Predicate, error) {
	if len(filters) == 0 {
		return Predicate{
			expr: "true",
			eval: func(*Document) bool { return true },
		}, nil
	}
	var (
		conditions = make([]string, 0, len(filters))
		evals      = make([]func(*Document) bool, 0, len(filters))
	)
	for _, f := range filters {
		eval, err := compileFilter(f)
		if err != nil {
			return Predicate{}, err
		}
		conditions = append(conditions, "data."+f.String())
		evals = append(evals, eval)
	}
	return Predicate{
		expr: strings.Join(conditions, " && "),
		eval: func(doc *Document) bool {
			for _, eval := range evals {
				if !eval(doc) {
					return false
				}
			}
			return true
		},
	}, nil
}

func compileFilter(f Filter) (func(*Document) bool, error) {
	field := f.Field
	switch f.Op {
	case OpEq:
		switch {
		case isTextual(f.Value):
			want := cast.ToString(f.Value)
			return func(d *Document) bool {
				return d.Exists(field) && d.GetString(field) == want
			}, nil
		case isNumeric(f.Value):
			want := cast.ToFloat64(f.Value)
			return func(d *Document) bool {
				return d.Exists(field) && d.GetFloat(field) == want
			}, nil
		default:
			want := util.JSONString(f.Value)
			return func(d *Document) bool {
				return d.Exists(field) && util.JSONString(d.Get(field)) == want
			}, nil
		}
	case OpGt:
		want := cast.ToFloat64(f.Value)
		return func(d *Document) bool {
			return d.Exists(field) && d.GetFloat(field) > want
		}, nil
	case OpGte:
		want := cast.ToFloat64(f.Value)
		return func(d *Document) bool {
			return d.Exists(field) && d.GetFloat(field) >= want
		}, nil
	case OpLt:
		want := cast.ToFloat64(f.Value)
		return func(d *Document) bool {
			return d.Exists(field) && d.GetFloat(field) < want
		}, nil
	case OpLte:
		want := cast.ToFloat64(f.Value)
		return func(d *Document) bool {
			return d.Exists(field) && d.GetFloat(field) <= want
		}, nil
	default:
		return nil, errors.New(errors.Validation, "invalid filter operator: %s", f.Op)
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

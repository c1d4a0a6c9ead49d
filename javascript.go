package multiq

import (
	"github.com/autom8ter/multiq/errors"
	"github.com/dop251/goja"
	"github.com/spf13/cast"
)

// JavascriptFilter compiles a javascript boolean expression into a per-document
// check. The expression is evaluated with bindings `key` (string) and `doc`
// (the document as an object), eg: `doc.age < 50 && doc.name == "Vishnu"`.
// A fresh runtime is used per evaluation so checks may run concurrently.
func JavascriptFilter(src string) (func(key string, doc *Document) (bool, error), error) {
	program, err := goja.Compile("filter", src, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to compile javascript filter")
	}
	return func(key string, doc *Document) (bool, error) {
		vm := goja.New()
		if err := vm.Set("key", key); err != nil {
			return false, err
		}
		if err := vm.Set("doc", doc.Value()); err != nil {
			return false, err
		}
		value, err := vm.RunProgram(program)
		if err != nil {
			return false, errors.Wrap(err, errors.Internal, "javascript filter failed")
		}
		return value.ToBoolean(), nil
	}, nil
}

// JavascriptMap builds a map stage from a javascript boolean expression: the
// stage emits (key, document) when the expression is truthy
func JavascriptMap(src string) (MapFunc, error) {
	filter, err := JavascriptFilter(src)
	if err != nil {
		return nil, err
	}
	return func(key string, doc *Document) ([]Result, error) {
		pass, err := filter(key, doc)
		if err != nil {
			return nil, err
		}
		if !pass {
			return nil, nil
		}
		return []Result{{Key: key, Document: doc}}, nil
	}, nil
}

// JavascriptReduce builds a reduce stage from a javascript expression. The
// expression is evaluated with the binding `results` - an array of
// {key, doc} objects - and must return an array of the same shape.
func JavascriptReduce(src string) (ReduceFunc, error) {
	program, err := goja.Compile("reduce", src, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to compile javascript reduce")
	}
	return func(results []Result) ([]Result, error) {
		vm := goja.New()
		input := make([]any, 0, len(results))
		for _, r := range results {
			input = append(input, map[string]any{
				"key": r.Key,
				"doc": r.Document.Value(),
			})
		}
		if err := vm.Set("results", input); err != nil {
			return nil, err
		}
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "javascript reduce failed")
		}
		exported, ok := value.Export().([]any)
		if !ok {
			return nil, errors.New(errors.Validation, "javascript reduce must return an array, got: %T", value.Export())
		}
		out := make([]Result, 0, len(exported))
		for _, e := range exported {
			m := cast.ToStringMap(e)
			doc, err := NewDocumentFrom(m["doc"])
			if err != nil {
				return nil, err
			}
			out = append(out, Result{
				Key:      cast.ToString(m["key"]),
				Document: doc,
			})
		}
		return out, nil
	}, nil
}

// withScriptFilter ANDs a javascript filter into an existing map stage
func withScriptFilter(mapFn MapFunc, src string) (MapFunc, error) {
	filter, err := JavascriptFilter(src)
	if err != nil {
		return nil, err
	}
	return func(key string, doc *Document) ([]Result, error) {
		out, err := mapFn(key, doc)
		if err != nil || len(out) == 0 {
			return nil, err
		}
		pass, err := filter(key, doc)
		if err != nil {
			return nil, err
		}
		if !pass {
			return nil, nil
		}
		return out, nil
	}, nil
}

// Package filter implements the admission filter chain. Filters run in
// order and evaluation stops at the first failure; the failing filter's
// name is what the queue reports in its rejection callback.
package filter

import (
	"strings"

	"github.com/moyoez/uploadqueue-go/types"
)

// Func is one named predicate. It must not mutate the descriptor or config.
type Func func(fd types.FileDescriptor, cfg *types.UploadConfig) bool

// Filter pairs a predicate with the name reported on rejection.
type Filter struct {
	Name string
	Fn   Func
}

// Evaluate runs filters in order against the candidate. It returns the name
// of the first failing filter and false, or "" and true when all pass.
func Evaluate(fd types.FileDescriptor, filters []Filter, cfg *types.UploadConfig) (string, bool) {
	for _, f := range filters {
		if f.Fn == nil {
			continue
		}
		if !f.Fn(fd, cfg) {
			return f.Name, false
		}
	}
	return "", true
}

// Resolve picks filters from registered by name. Names are separated by
// whitespace and/or commas; unknown names are silently ignored. An empty
// spec selects the full registered list.
func Resolve(spec string, registered []Filter) []Filter {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return registered
	}
	names := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]Filter, 0, len(names))
	for _, name := range names {
		for _, f := range registered {
			if f.Name == name {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

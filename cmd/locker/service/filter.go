package service

import (
	"fmt"

	"github.com/alibi/locker/cmd/locker/models"
	"github.com/google/cel-go/cel"
)

// Filter narrows a listing with a CEL expression evaluated against each
// record, e.g. `item.type == 'photo' && item.size_bytes > 1024`.
type Filter struct {
	program cel.Program
}

// NewFilter compiles a CEL filter expression
func NewFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}

	return &Filter{program: program}, nil
}

// Match evaluates the filter against a record
func (f *Filter) Match(record *models.Evidence) (bool, error) {
	out, _, err := f.program.Eval(map[string]interface{}{
		"item": itemVars(record),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return boolean, got %T", out.Value())
	}

	return result, nil
}

// itemVars exposes the filterable view of a record to CEL
func itemVars(record *models.Evidence) map[string]interface{} {
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}

	vars := map[string]interface{}{
		"type":         string(record.ItemType),
		"size_bytes":   record.SizeBytes,
		"content_hash": record.ContentHash,
		"has_file":     record.HasObject(),
		"tags":         tags,
		"captured_at":  record.CapturedAt,
	}

	if record.Title != nil {
		vars["title"] = *record.Title
	} else {
		vars["title"] = ""
	}
	if record.MimeType != nil {
		vars["mime_type"] = *record.MimeType
	} else {
		vars["mime_type"] = ""
	}

	return vars
}

package dispatch

import (
	"fmt"
	"strings"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

// Param describes one tool argument.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "number", "integer", "boolean", "array"
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Schema is the declared argument surface of a tool. Unknown arguments
// are rejected so callers find typos instead of silently passing them.
type Schema struct {
	Params []Param `json:"params"`
}

// Validate checks args against the schema and returns InvalidArguments
// naming every offending field, or nil.
func (s Schema) Validate(args map[string]any) error {
	var problems []string

	byName := make(map[string]Param, len(s.Params))
	for _, p := range s.Params {
		byName[p.Name] = p
		if p.Required {
			if _, ok := args[p.Name]; !ok {
				problems = append(problems, fmt.Sprintf("missing required argument %q", p.Name))
			}
		}
	}

	for name, val := range args {
		p, ok := byName[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown argument %q", name))
			continue
		}
		if msg := checkValue(p, val); msg != "" {
			problems = append(problems, msg)
		}
	}

	if len(problems) > 0 {
		return apperrors.NewInvalidArgs(strings.Join(problems, "; "))
	}
	return nil
}

func checkValue(p Param, val any) string {
	switch p.Type {
	case "string":
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("argument %q must be a string", p.Name)
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				if s == e {
					return ""
				}
			}
			return fmt.Sprintf("argument %q must be one of %s", p.Name, strings.Join(p.Enum, ", "))
		}
	case "number", "integer":
		// JSON decodes all numbers to float64.
		f, ok := val.(float64)
		if !ok {
			return fmt.Sprintf("argument %q must be a number", p.Name)
		}
		if p.Type == "integer" && f != float64(int64(f)) {
			return fmt.Sprintf("argument %q must be an integer", p.Name)
		}
		if p.Min != nil && f < *p.Min {
			return fmt.Sprintf("argument %q must be >= %v", p.Name, *p.Min)
		}
		if p.Max != nil && f > *p.Max {
			return fmt.Sprintf("argument %q must be <= %v", p.Name, *p.Max)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Sprintf("argument %q must be a boolean", p.Name)
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return fmt.Sprintf("argument %q must be an array", p.Name)
		}
	}
	return ""
}

// Argument accessors for handlers. Absent optional arguments return the
// zero value; validation has already run by the time handlers see args.

func StringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func NumberArg(args map[string]any, name string) float64 {
	if v, ok := args[name].(float64); ok {
		return v
	}
	return 0
}

func IntArg(args map[string]any, name string) int {
	return int(NumberArg(args, name))
}

func BoolArg(args map[string]any, name string) (bool, bool) {
	v, ok := args[name].(bool)
	return v, ok
}

func StringSliceArg(args map[string]any, name string) []string {
	raw, ok := args[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

package dispatch

import "fmt"

// requiredParams lists the params each (domain, operation) pair requires.
// Operations absent from this table have no required params beyond what the
// verification gate itself enforces.
var requiredParams = map[string][]string{
	"tasks.add":      {"title", "description"},
	"tasks.update":   {"id"},
	"tasks.complete": {"id"},
	"tasks.delete":   {"id"},
	"tasks.archive":  {"id"},
	"tasks.restore":  {"id"},
	"tasks.reparent": {"id", "parentId"},
	"tasks.reopen":   {"id"},
	"tasks.show":     {"id"},

	"session.start":  {"scope"},
	"session.resume": {"id"},

	"admin.config.set": {"key", "value"},
}

// ErrMissingParam reports a required param absent from the request, with a
// generated fix suggestion per spec.md §4.5.
type ErrMissingParam struct {
	Domain    string
	Operation string
	Param     string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("dispatch: %s.%s requires param %q", e.Domain, e.Operation, e.Param)
}

func (e *ErrMissingParam) Fix() string {
	return fmt.Sprintf("retry with --%s=<value>", e.Param)
}

// validateParams checks that every required param for (domain, operation)
// is present and non-nil in params.
func validateParams(domain, operation string, params map[string]any) error {
	for _, name := range requiredParams[domain+"."+operation] {
		if v, ok := params[name]; !ok || v == nil {
			return &ErrMissingParam{Domain: domain, Operation: operation, Param: name}
		}
	}
	return nil
}

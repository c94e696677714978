package rules

import "fmt"

// RuleSourceError reports a rule catalog that could not be loaded or is
// structurally invalid. It is fatal to any run that needs the catalog.
type RuleSourceError struct {
	Source string
	Err    error
}

func (e *RuleSourceError) Error() string {
	return fmt.Sprintf("rule source %s: %v", e.Source, e.Err)
}

func (e *RuleSourceError) Unwrap() error { return e.Err }

func sourceErr(source string, err error) error {
	return &RuleSourceError{Source: source, Err: err}
}

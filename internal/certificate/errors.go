package certificate

import "fmt"

// ValidationError reports malformed ingestion input: an empty record set, a
// header that does not match the fixed certificate field set, or a bad row.
// Validation failures are fully local; no ledger call is made.
type ValidationError struct {
	Row    int    // 1-based data row number; 0 when not row-specific
	Field  string // offending field name, when known
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("invalid input at row %d, field %q: %s", e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("invalid input at row %d: %s", e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid input in field %q: %s", e.Field, e.Reason)
	default:
		return "invalid input: " + e.Reason
	}
}

package intake

import (
	"fmt"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// MalformedRecordError reports a ticket that failed validation at intake. The
// record is skipped; the batch continues.
type MalformedRecordError struct {
	Source   types.SourceType
	TicketID string
	Line     int
	Field    string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	where := e.TicketID
	if where == "" && e.Line > 0 {
		where = fmt.Sprintf("line %d", e.Line)
	}
	if where == "" {
		where = "record"
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Source, where, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Source, where, e.Reason)
}

// Record converts the error into its summary form.
func (e *MalformedRecordError) Record() types.MalformedRecord {
	reason := e.Reason
	if e.Field != "" {
		reason = e.Field + ": " + e.Reason
	}
	return types.MalformedRecord{
		Source:   e.Source,
		TicketID: e.TicketID,
		Line:     e.Line,
		Reason:   reason,
	}
}

package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// ExportColumns is the header of the Power BI export.
var ExportColumns = []string{
	"ID", "Type", "Category", "Priority_Risk", "Technician", "Deviation_Count",
	"Compliance_Status", "Has_SLA_Breach", "Has_Process_Deviation", "Timestamp",
}

// ExportCSV writes one row per result in the Power BI layout. Every row
// carries the same timestamp, the report generation time.
func ExportCSV(w io.Writer, results []types.EvaluationResult, at time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	stamp := at.UTC().Format(time.RFC3339)
	for _, r := range results {
		level := string(r.Priority)
		if r.TicketType == types.TicketChange {
			level = string(r.RiskLevel)
		}
		technician := r.Owner.TechnicianName
		if technician == "" {
			technician = r.Owner.TechnicianEmail
		}
		row := []string{
			r.TicketID,
			string(r.TicketType),
			r.Category,
			level,
			technician,
			strconv.Itoa(len(r.Violations)),
			string(r.Status()),
			titleBool(r.HasSLABreach()),
			titleBool(hasProcessDeviation(r)),
			stamp,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// hasProcessDeviation is true for any MISSING_* or process-step violation.
func hasProcessDeviation(r types.EvaluationResult) bool {
	for _, v := range r.Violations {
		k := string(v.Kind)
		if strings.Contains(k, "PROCESS") || strings.Contains(k, "MISSING") {
			return true
		}
	}
	return false
}

// titleBool matches the True/False spelling the dashboards were built against.
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

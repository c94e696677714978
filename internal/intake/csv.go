package intake

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// CSVSource reads the incident and change exports produced by the ticketing
// tools. Either path may be empty.
type CSVSource struct {
	name      string
	incidents string
	changes   string
	logger    *slog.Logger
}

// Name returns the configured source name.
func (s *CSVSource) Name() string { return s.name }

// Fetch reads both files. A missing or unreadable file is an error; bad rows
// are collected into Batch.Malformed.
func (s *CSVSource) Fetch(ctx context.Context) (Batch, error) {
	var b Batch
	if s.incidents != "" {
		f, err := os.Open(s.incidents)
		if err != nil {
			return Batch{}, fmt.Errorf("opening incidents %s: %w", s.incidents, err)
		}
		defer f.Close()
		got, err := ReadIncidentsCSV(ctx, f, s.logger)
		if err != nil {
			return Batch{}, fmt.Errorf("reading incidents %s: %w", s.incidents, err)
		}
		b.Merge(got)
	}
	if s.changes != "" {
		f, err := os.Open(s.changes)
		if err != nil {
			return Batch{}, fmt.Errorf("opening changes %s: %w", s.changes, err)
		}
		defer f.Close()
		got, err := ReadChangesCSV(ctx, f, s.logger)
		if err != nil {
			return Batch{}, fmt.Errorf("reading changes %s: %w", s.changes, err)
		}
		b.Merge(got)
	}
	return b, nil
}

var (
	incidentColumns = []string{"Incident_ID", "Category", "Priority", "Created_Date"}
	changeColumns   = []string{"Change_ID", "Type", "Risk_Level"}
)

// table indexes a CSV header so rows can be read by column name.
type table struct {
	index map[string]int
}

func newTable(header []string, required []string) (table, error) {
	t := table{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.index[h] = i
	}
	var missing []string
	for _, c := range required {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return table{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return t, nil
}

func (t table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// eachRow streams data rows with their 1-based file line numbers.
func eachRow(ctx context.Context, r io.Reader, required []string, fn func(t table, row []string, line int) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty file")
		}
		return fmt.Errorf("reading header: %w", err)
	}
	t, err := newTable(header, required)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(row) {
			continue
		}
		if err := fn(t, row, line); err != nil {
			return err
		}
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadIncidentsCSV parses an incident export with the columns Incident_ID,
// Category, Priority, Created_Date, Response_Date, Resolved_Date,
// Steps_Completed, Reassignment_Count, Knowledge_Article_Created,
// Customer_Satisfaction and the technician/manager name and email columns.
func ReadIncidentsCSV(ctx context.Context, r io.Reader, logger *slog.Logger) (Batch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var b Batch
	err := eachRow(ctx, r, incidentColumns, func(t table, row []string, line int) error {
		raw := incidentRow{
			ID:              t.get(row, "Incident_ID"),
			Category:        t.get(row, "Category"),
			Priority:        t.get(row, "Priority"),
			Created:         t.get(row, "Created_Date"),
			Response:        t.get(row, "Response_Date"),
			Resolved:        t.get(row, "Resolved_Date"),
			Steps:           splitList(t.get(row, "Steps_Completed")),
			Reassignments:   t.get(row, "Reassignment_Count"),
			KBCreated:       t.get(row, "Knowledge_Article_Created"),
			Satisfaction:    t.get(row, "Customer_Satisfaction"),
			TechnicianName:  t.get(row, "Technician_Name"),
			TechnicianEmail: t.get(row, "Technician_Email"),
			ManagerName:     t.get(row, "Manager_Name"),
			ManagerEmail:    t.get(row, "Manager_Email"),
			Summary:         t.get(row, "Description"),
		}
		rec, err := raw.toIncident(types.SourceCSV, line)
		if err != nil {
			return b.skip(logger, err)
		}
		b.Incidents = append(b.Incidents, rec)
		return nil
	})
	return b, err
}

// ReadChangesCSV parses a change export. Implemented_During_Blackout may be
// left empty when Actual_Implementation_Date is set; the blackout calendar
// fills it in later.
func ReadChangesCSV(ctx context.Context, r io.Reader, logger *slog.Logger) (Batch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var b Batch
	err := eachRow(ctx, r, changeColumns, func(t table, row []string, line int) error {
		raw := changeRow{
			ID:               t.get(row, "Change_ID"),
			ChangeType:       t.get(row, "Type"),
			RiskLevel:        t.get(row, "Risk_Level"),
			Category:         t.get(row, "Category"),
			Approvals:        splitList(t.get(row, "Obtained_Approvals")),
			TestingRequired:  t.get(row, "Testing_Required"),
			TestingCompleted: t.get(row, "Testing_Completed"),
			RollbackPlan:     t.get(row, "Rollback_Plan_Documented"),
			DuringBlackout:   t.get(row, "Implemented_During_Blackout"),
			ReviewCompleted:  t.get(row, "Post_Implementation_Review_Completed"),
			KBUpdated:        t.get(row, "Knowledge_Base_Updated"),
			Implemented:      t.get(row, "Actual_Implementation_Date"),
			TechnicianName:   t.get(row, "Technician_Name"),
			TechnicianEmail:  t.get(row, "Technician_Email"),
			ManagerName:      t.get(row, "Manager_Name"),
			ManagerEmail:     t.get(row, "Manager_Email"),
			Summary:          t.get(row, "Description"),
		}
		rec, err := raw.toChange(types.SourceCSV, line)
		if err != nil {
			return b.skip(logger, err)
		}
		b.Changes = append(b.Changes, rec)
		return nil
	})
	return b, err
}

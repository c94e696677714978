package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// rowValidate checks raw rows before they are mapped onto typed records.
var rowValidate *validator.Validate

func init() {
	rowValidate = validator.New()
	_ = rowValidate.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		_, err := types.ParsePriority(fl.Field().String())
		return err == nil
	})
	_ = rowValidate.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
		_, err := types.ParseRiskLevel(fl.Field().String())
		return err == nil
	})
	_ = rowValidate.RegisterValidation("changetype", func(fl validator.FieldLevel) bool {
		_, err := types.ParseChangeType(fl.Field().String())
		return err == nil
	})
	_ = rowValidate.RegisterValidation("satisfaction", func(fl validator.FieldLevel) bool {
		_, err := types.ParseSatisfaction(fl.Field().String())
		return err == nil
	})
	_ = rowValidate.RegisterValidation("yesno", func(fl validator.FieldLevel) bool {
		_, err := parseYesNo(fl.Field().String())
		return err == nil
	})
	_ = rowValidate.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := parseTime(fl.Field().String())
		return err == nil
	})
}

// tagReasons renders failed validator tags as readable reasons.
var tagReasons = map[string]string{
	"required":     "is required",
	"priority":     "unknown priority",
	"risklevel":    "unknown risk level",
	"changetype":   "unknown change type",
	"satisfaction": "unknown satisfaction rating",
	"yesno":        "expected Yes or No",
	"timestamp":    "unrecognized timestamp",
	"number":       "expected a non-negative integer",
	"email":        "invalid email address",
}

// checkRow validates a raw row and converts the first failure into a
// MalformedRecordError.
func checkRow(source types.SourceType, id string, line int, row any) error {
	err := rowValidate.Struct(row)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &MalformedRecordError{Source: source, TicketID: id, Line: line, Reason: err.Error()}
	}
	fe := verrs[0]
	reason, ok := tagReasons[fe.Tag()]
	if !ok {
		reason = "failed " + fe.Tag()
	}
	if v := fmt.Sprint(fe.Value()); v != "" && fe.Tag() != "required" {
		reason = fmt.Sprintf("%s %q", reason, v)
	}
	return &MalformedRecordError{Source: source, TicketID: id, Line: line, Field: fe.Field(), Reason: reason}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// parseTime accepts the timestamp shapes produced by CSV exports, Jira and
// ServiceNow. Zone-less values are read as UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseOptionalTime returns nil for an empty value.
func parseOptionalTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("expected Yes or No, got %q", s)
}

// splitList splits a " | "-joined cell. "None" and empty cells are empty lists.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

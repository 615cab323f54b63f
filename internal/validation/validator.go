package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wealthdesk/client-import-api/internal/models"
)

// emailRegex splits on the last '@': a non-empty local part without
// whitespace, then a domain of at least two non-empty dot-separated labels.
var emailRegex = regexp.MustCompile(`^\S+@[^\s@.]+(\.[^\s@.]+)+$`)

// Error messages reported on rows
const (
	MsgNameRequired  = "Name is required."
	MsgEmailRequired = "At least one valid email is required."
	msgStatusFormat  = "Unrecognized status value: %s."
)

// UnrecognizedStatus formats the error for an unknown status label
func UnrecognizedStatus(value string) string {
	return fmt.Sprintf(msgStatusFormat, value)
}

// ValidateRows turns raw rows into normalized records or row errors.
// It has no side effects: the same input always yields the same result.
func ValidateRows(rows []models.RawRow) models.ValidationResult {
	result := models.ValidationResult{
		Valid:    make([]*models.ClientImportRecord, 0, len(rows)),
		Invalid:  make([]models.RowError, 0),
		Warnings: make([]string, 0),
	}

	for _, row := range rows {
		record, errs, warnings := validateRow(row)
		result.Warnings = append(result.Warnings, warnings...)
		if len(errs) > 0 {
			result.Invalid = append(result.Invalid, models.RowError{Row: row.Number, Errors: errs})
			continue
		}
		result.Valid = append(result.Valid, record)
	}

	result.Warnings = append(result.Warnings, crossRowWarnings(result.Valid)...)
	return result
}

// validateRow applies the field rules in a fixed order and collects every failure
func validateRow(row models.RawRow) (*models.ClientImportRecord, []string, []string) {
	var errs, warnings []string

	// Name
	name := strings.TrimSpace(row.Get(models.ColumnName))
	if name == "" {
		errs = append(errs, MsgNameRequired)
	}

	// Email
	emails, rejected := ParseEmails(row.Get(models.ColumnEmail))
	if len(emails) == 0 {
		errs = append(errs, MsgEmailRequired)
	} else {
		for _, token := range rejected {
			warnings = append(warnings, fmt.Sprintf("Row %d: ignored invalid email %q.", row.Number, token))
		}
	}

	// Status
	status := models.DefaultClientStatus
	if raw := strings.TrimSpace(row.Get(models.ColumnStatus)); raw != "" {
		parsed, ok := models.ParseClientStatus(raw)
		if !ok {
			errs = append(errs, UnrecognizedStatus(raw))
		} else {
			status = parsed
		}
	}

	if len(errs) > 0 {
		return nil, errs, warnings
	}

	return &models.ClientImportRecord{
		SourceRow: row.Number,
		Name:      name,
		Emails:    emails,
		Phone:     strings.TrimSpace(row.Get(models.ColumnPhone)),
		Status:    status,
		Address: models.Address{
			Street:       strings.TrimSpace(row.Get(models.ColumnStreet)),
			Complement:   strings.TrimSpace(row.Get(models.ColumnComplement)),
			Neighborhood: strings.TrimSpace(row.Get(models.ColumnNeighborhood)),
			City:         strings.TrimSpace(row.Get(models.ColumnCity)),
			State:        strings.TrimSpace(row.Get(models.ColumnState)),
			ZipCode:      strings.TrimSpace(row.Get(models.ColumnZipCode)),
		},
	}, nil, warnings
}

// ParseEmails splits a multi-value email cell on ';' and ','.
// It returns the well-formed addresses (deduplicated, in order) and the rejected tokens.
func ParseEmails(cell string) (valid []string, rejected []string) {
	seen := make(map[string]bool)
	tokens := strings.FieldsFunc(cell, func(r rune) bool { return r == ';' || r == ',' })
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !IsEmail(token) {
			rejected = append(rejected, token)
			continue
		}
		key := strings.ToLower(token)
		if seen[key] {
			continue
		}
		seen[key] = true
		valid = append(valid, token)
	}
	return valid, rejected
}

// IsEmail reports whether s has the shape local@domain.tld. Character sets
// are not restricted beyond excluding whitespace.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// crossRowWarnings reports duplicate primary emails and missing phones among valid rows
func crossRowWarnings(valid []*models.ClientImportRecord) []string {
	var warnings []string

	byEmail := make(map[string][]int)
	var order []string
	noPhone := 0
	for _, record := range valid {
		key := strings.ToLower(record.PrimaryEmail())
		if _, ok := byEmail[key]; !ok {
			order = append(order, key)
		}
		byEmail[key] = append(byEmail[key], record.SourceRow)
		if record.Phone == "" {
			noPhone++
		}
	}

	for _, email := range order {
		rows := byEmail[email]
		if len(rows) < 2 {
			continue
		}
		sort.Ints(rows)
		labels := make([]string, len(rows))
		for i, r := range rows {
			labels[i] = strconv.Itoa(r)
		}
		warnings = append(warnings, fmt.Sprintf("%d rows share the email %s (rows %s).",
			len(rows), email, strings.Join(labels, ", ")))
	}

	if noPhone == 1 {
		warnings = append(warnings, "1 row has no phone number.")
	} else if noPhone > 1 {
		warnings = append(warnings, fmt.Sprintf("%d rows have no phone number.", noPhone))
	}

	return warnings
}

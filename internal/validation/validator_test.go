package validation

import (
	"reflect"
	"strings"
	"testing"

	"github.com/wealthdesk/client-import-api/internal/models"
)

func row(number int, values map[string]string) models.RawRow {
	return models.RawRow{Number: number, Columns: models.ClientColumns, Values: values}
}

func wellFormed(number int, name, email string) models.RawRow {
	return row(number, map[string]string{
		models.ColumnName:  name,
		models.ColumnEmail: email,
		models.ColumnPhone: "(11) 90000-0000",
	})
}

func TestValidateRows_FieldRules(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]string
		wantValid  bool
		wantErrors []string
	}{
		{
			name: "valid row with all fields",
			values: map[string]string{
				models.ColumnName:   "Ana Souza",
				models.ColumnEmail:  "ana@exemplo.com.br",
				models.ColumnStatus: "inativo",
				models.ColumnCity:   "São Paulo",
				models.ColumnState:  "SP",
			},
			wantValid: true,
		},
		{
			name: "punctuation in local part and one-letter tld",
			values: map[string]string{
				models.ColumnName:  "Seán O'Brien",
				models.ColumnEmail: "o'brien@example.com; a&b@b.c",
			},
			wantValid: true,
		},
		{
			name: "missing name",
			values: map[string]string{
				models.ColumnName:  "   ",
				models.ColumnEmail: "ana@exemplo.com",
			},
			wantErrors: []string{MsgNameRequired},
		},
		{
			name: "no email column value",
			values: map[string]string{
				models.ColumnName: "Ana",
			},
			wantErrors: []string{MsgEmailRequired},
		},
		{
			name: "only malformed emails",
			values: map[string]string{
				models.ColumnName:  "Ana",
				models.ColumnEmail: "ana@; not-an-email, ana@localhost",
			},
			wantErrors: []string{MsgEmailRequired},
		},
		{
			name: "unrecognized status",
			values: map[string]string{
				models.ColumnName:   "Ana",
				models.ColumnEmail:  "ana@exemplo.com",
				models.ColumnStatus: "arquivado",
			},
			wantErrors: []string{"Unrecognized status value: arquivado."},
		},
		{
			name: "every failure reported in rule order",
			values: map[string]string{
				models.ColumnName:   "",
				models.ColumnEmail:  "broken",
				models.ColumnStatus: "??",
			},
			wantErrors: []string{MsgNameRequired, MsgEmailRequired, "Unrecognized status value: ??."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRows([]models.RawRow{row(1, tt.values)})

			if tt.wantValid {
				if len(result.Valid) != 1 || len(result.Invalid) != 0 {
					t.Fatalf("expected row to be valid, got invalid=%v", result.Invalid)
				}
				return
			}
			if len(result.Invalid) != 1 {
				t.Fatalf("expected 1 invalid row, got %d", len(result.Invalid))
			}
			got := result.Invalid[0]
			if got.Row != 1 {
				t.Errorf("expected row 1, got %d", got.Row)
			}
			if !reflect.DeepEqual(got.Errors, tt.wantErrors) {
				t.Errorf("errors = %v, want %v", got.Errors, tt.wantErrors)
			}
		})
	}
}

func TestValidateRows_Normalization(t *testing.T) {
	result := ValidateRows([]models.RawRow{row(1, map[string]string{
		models.ColumnName:         "  Bruno Lima ",
		models.ColumnEmail:        "bruno@exemplo.com, BRUNO@exemplo.com; b.lima@pessoal.com",
		models.ColumnStatus:       " PROSPECT ",
		models.ColumnNeighborhood: " Centro ",
	})})

	if len(result.Valid) != 1 {
		t.Fatalf("expected 1 valid row, got invalid=%v", result.Invalid)
	}
	rec := result.Valid[0]
	if rec.Name != "Bruno Lima" {
		t.Errorf("name not trimmed: %q", rec.Name)
	}
	wantEmails := []string{"bruno@exemplo.com", "b.lima@pessoal.com"}
	if !reflect.DeepEqual(rec.Emails, wantEmails) {
		t.Errorf("emails = %v, want %v", rec.Emails, wantEmails)
	}
	if rec.Status != models.ClientStatusProspect {
		t.Errorf("status = %s, want %s", rec.Status, models.ClientStatusProspect)
	}
	if rec.Address.Neighborhood != "Centro" || rec.Address.City != "" {
		t.Errorf("unexpected address: %+v", rec.Address)
	}
	if rec.SourceRow != 1 {
		t.Errorf("source row = %d, want 1", rec.SourceRow)
	}
}

func TestValidateRows_DefaultStatus(t *testing.T) {
	result := ValidateRows([]models.RawRow{wellFormed(1, "Ana", "ana@exemplo.com")})
	if len(result.Valid) != 1 {
		t.Fatal("expected valid row")
	}
	if result.Valid[0].Status != models.DefaultClientStatus {
		t.Errorf("status = %s, want default %s", result.Valid[0].Status, models.DefaultClientStatus)
	}
	if result.Valid[0].Status != models.ClientStatuses[0] {
		t.Error("default status must be the first member of the enumeration")
	}
}

func TestValidateRows_MalformedTokenWarning(t *testing.T) {
	result := ValidateRows([]models.RawRow{wellFormed(3, "Ana", "ana@exemplo.com; ana@")})

	if len(result.Valid) != 1 {
		t.Fatalf("row with one good email must stay valid, got %v", result.Invalid)
	}
	if len(result.Valid[0].Emails) != 1 {
		t.Errorf("malformed token should be dropped, got %v", result.Valid[0].Emails)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Row 3") {
		t.Errorf("expected one row-level warning, got %v", result.Warnings)
	}
}

func TestValidateRows_EmptyInput(t *testing.T) {
	result := ValidateRows(nil)
	if len(result.Valid) != 0 || len(result.Invalid) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestValidateRows_RowCoverage(t *testing.T) {
	var rows []models.RawRow
	for i := 1; i <= 50; i++ {
		switch i % 3 {
		case 0:
			rows = append(rows, wellFormed(i, "", "x@exemplo.com"))
		case 1:
			rows = append(rows, wellFormed(i, "Cliente", "bad-email"))
		default:
			rows = append(rows, wellFormed(i, "Cliente", "c@exemplo.com"))
		}
	}

	result := ValidateRows(rows)
	if got := len(result.Valid) + len(result.Invalid); got != len(rows) {
		t.Errorf("valid+invalid = %d, want %d", got, len(rows))
	}
	if result.TotalRows() != len(rows) {
		t.Errorf("TotalRows() = %d, want %d", result.TotalRows(), len(rows))
	}
}

func TestValidateRows_Idempotent(t *testing.T) {
	rows := []models.RawRow{
		wellFormed(1, "Ana", "ana@exemplo.com; bad"),
		wellFormed(2, "", "bruno@exemplo.com"),
		wellFormed(3, "Carla", "ana@exemplo.com"),
	}

	first := ValidateRows(rows)
	second := ValidateRows(rows)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestValidateRows_MixedValidity(t *testing.T) {
	rows := []models.RawRow{
		wellFormed(1, "Ana", "ana@exemplo.com"),
		wellFormed(2, "", "bruno@exemplo.com"),
		wellFormed(3, "Carla", "carla@exemplo.com"),
		wellFormed(4, "Daniel", "daniel.exemplo.com"),
		wellFormed(5, "Eduarda", "eduarda@exemplo.com"),
	}

	result := ValidateRows(rows)

	if len(result.Valid) != 3 {
		t.Errorf("expected 3 valid rows, got %d", len(result.Valid))
	}
	if len(result.Invalid) != 2 || result.Invalid[0].Row != 2 || result.Invalid[1].Row != 4 {
		t.Fatalf("expected invalid rows [2 4], got %+v", result.Invalid)
	}
	for i, want := range []int{1, 3, 5} {
		if result.Valid[i].SourceRow != want {
			t.Errorf("valid[%d] row = %d, want %d", i, result.Valid[i].SourceRow, want)
		}
	}
}

func TestValidateRows_ErrorCompleteness(t *testing.T) {
	result := ValidateRows([]models.RawRow{wellFormed(1, "", "nope")})
	if len(result.Invalid) != 1 {
		t.Fatal("expected invalid row")
	}
	if len(result.Invalid[0].Errors) < 2 {
		t.Errorf("expected at least 2 messages, got %v", result.Invalid[0].Errors)
	}
}

func TestValidateRows_DuplicateEmails(t *testing.T) {
	rows := []models.RawRow{
		wellFormed(1, "Ana", "shared@exemplo.com"),
		wellFormed(2, "Bruno", "bruno@exemplo.com"),
		wellFormed(3, "Carla", "Shared@Exemplo.com"),
	}

	result := ValidateRows(rows)

	if len(result.Valid) != 3 {
		t.Fatalf("duplicates must not invalidate rows, got invalid=%v", result.Invalid)
	}
	matches := 0
	for _, w := range result.Warnings {
		if strings.Contains(w, "shared@exemplo.com") {
			matches++
			if !strings.HasPrefix(w, "2 rows share the email") {
				t.Errorf("unexpected warning text: %s", w)
			}
		}
	}
	if matches != 1 {
		t.Errorf("expected exactly one duplicate warning, got %v", result.Warnings)
	}
}

func TestValidateRows_DuplicateAmongInvalidIgnored(t *testing.T) {
	rows := []models.RawRow{
		wellFormed(1, "Ana", "dup@exemplo.com"),
		wellFormed(2, "", "dup@exemplo.com"),
	}
	result := ValidateRows(rows)
	for _, w := range result.Warnings {
		if strings.Contains(w, "dup@exemplo.com") {
			t.Errorf("invalid rows must not take part in duplicate detection: %s", w)
		}
	}
}

func TestValidateRows_MissingPhoneWarning(t *testing.T) {
	rows := []models.RawRow{
		row(1, map[string]string{models.ColumnName: "Ana", models.ColumnEmail: "a@exemplo.com"}),
		row(2, map[string]string{models.ColumnName: "Bia", models.ColumnEmail: "b@exemplo.com"}),
		wellFormed(3, "Caio", "c@exemplo.com"),
	}
	result := ValidateRows(rows)

	want := "2 rows have no phone number."
	found := false
	for _, w := range result.Warnings {
		if w == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning %q, got %v", want, result.Warnings)
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ana@exemplo.com", true},
		{"ana.souza+crm@exemplo.com.br", true},
		{"o'brien@example.com", true},
		{"a&b@example.com", true},
		{"ana@b.c", true},
		{"joão@exemplo.com.br", true},
		{"ana@localhost", false},
		{"ana@exemplo..com", false},
		{"ana@.com", false},
		{"ana@exemplo.", false},
		{"ana souza@exemplo.com", false},
		{"@exemplo.com", false},
		{"ana@", false},
		{"ana exemplo.com", false},
	}
	for _, tt := range tests {
		if got := IsEmail(tt.in); got != tt.want {
			t.Errorf("IsEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

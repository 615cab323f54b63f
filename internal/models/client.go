package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ClientStatus represents the lifecycle status of a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "ativo"
	ClientStatusInactive ClientStatus = "inativo"
	ClientStatusProspect ClientStatus = "prospecto"
)

// ClientStatuses lists the allowed statuses. The first member is the default.
var ClientStatuses = []ClientStatus{
	ClientStatusActive,
	ClientStatusInactive,
	ClientStatusProspect,
}

// DefaultClientStatus is applied when a row carries no status
const DefaultClientStatus = ClientStatusActive

// statusAliases maps folded labels to their canonical status
var statusAliases = map[string]ClientStatus{
	"ativo":     ClientStatusActive,
	"ativa":     ClientStatusActive,
	"active":    ClientStatusActive,
	"inativo":   ClientStatusInactive,
	"inativa":   ClientStatusInactive,
	"inactive":  ClientStatusInactive,
	"prospecto": ClientStatusProspect,
	"prospect":  ClientStatusProspect,
	"lead":      ClientStatusProspect,
}

// ParseClientStatus resolves a user-supplied label to a status, ignoring case and accents
func ParseClientStatus(value string) (ClientStatus, bool) {
	status, ok := statusAliases[Fold(value)]
	return status, ok
}

// Fold lowercases, trims and strips diacritics so "Endereço" and "endereco" compare equal
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Address holds the optional postal address of a client
type Address struct {
	Street       string `json:"street" db:"street"`
	Complement   string `json:"complement" db:"complement"`
	Neighborhood string `json:"neighborhood" db:"neighborhood"`
	City         string `json:"city" db:"city"`
	State        string `json:"state" db:"state"`
	ZipCode      string `json:"zip_code" db:"zip_code"`
}

// IsEmpty reports whether no address field is filled
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Client represents a stored client record
type Client struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Emails    []string     `json:"emails" db:"emails"`
	Phone     string       `json:"phone,omitempty" db:"phone"`
	Status    ClientStatus `json:"status" db:"status"`
	Address   Address      `json:"address"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// ClientImportRecord is a normalized client produced by validation of one spreadsheet row
type ClientImportRecord struct {
	SourceRow int          `json:"row"`
	Name      string       `json:"name"`
	Emails    []string     `json:"emails"`
	Phone     string       `json:"phone,omitempty"`
	Status    ClientStatus `json:"status"`
	Address   Address      `json:"address"`
}

// PrimaryEmail returns the first email of the record
func (r *ClientImportRecord) PrimaryEmail() string {
	if len(r.Emails) == 0 {
		return ""
	}
	return r.Emails[0]
}

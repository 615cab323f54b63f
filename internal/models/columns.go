package models

// Canonical spreadsheet headers of the client import/export format
const (
	ColumnName         = "Nome"
	ColumnEmail        = "E-mail"
	ColumnPhone        = "Telefone"
	ColumnStatus       = "Status"
	ColumnStreet       = "Endereço"
	ColumnComplement   = "Complemento"
	ColumnNeighborhood = "Bairro"
	ColumnCity         = "Cidade"
	ColumnState        = "UF"
	ColumnZipCode      = "CEP"
)

// ClientColumns is the column order used for export and templates
var ClientColumns = []string{
	ColumnName,
	ColumnEmail,
	ColumnPhone,
	ColumnStatus,
	ColumnStreet,
	ColumnComplement,
	ColumnNeighborhood,
	ColumnCity,
	ColumnState,
	ColumnZipCode,
}

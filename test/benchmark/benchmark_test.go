package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/mocks"
	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/service"
	"github.com/wealthdesk/client-import-api/internal/tabular"
	"github.com/wealthdesk/client-import-api/internal/validation"
)

const benchRows = 1000

func buildCSV(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("Nome;E-mail;Telefone;Status;Cidade;UF\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "Cliente %d;cliente%d@exemplo.com, alt%d@exemplo.com;(11) 9%04d-0000;ativo;São Paulo;SP\n", i, i, i, i%10000)
	}
	return []byte(sb.String())
}

func buildClients(n int) []*models.Client {
	clients := make([]*models.Client, n)
	for i := range clients {
		clients[i] = &models.Client{
			ID:     fmt.Sprintf("client-%d", i),
			Name:   fmt.Sprintf("Cliente %d", i),
			Emails: []string{fmt.Sprintf("cliente%d@exemplo.com", i)},
			Phone:  "(11) 90000-0000",
			Status: models.DefaultClientStatus,
			Address: models.Address{
				City:  "Curitiba",
				State: "PR",
			},
		}
	}
	return clients
}

// BenchmarkDecodeCSV benchmarks parsing an uploaded CSV into raw rows
func BenchmarkDecodeCSV(b *testing.B) {
	data := buildCSV(benchRows)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := tabular.Decode(bytes.NewReader(data), tabular.FormatCSV); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(benchRows*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidateRows benchmarks row validation including cross-row warnings
func BenchmarkValidateRows(b *testing.B) {
	rows, err := tabular.Decode(bytes.NewReader(buildCSV(benchRows)), tabular.FormatCSV)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		result := validation.ValidateRows(rows)
		if len(result.Valid) != benchRows {
			b.Fatalf("expected %d valid rows, got %d", benchRows, len(result.Valid))
		}
	}

	b.ReportMetric(float64(benchRows*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkEncodeXLSX benchmarks building an export workbook
func BenchmarkEncodeXLSX(b *testing.B) {
	clients := buildClients(benchRows)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := tabular.Encode(clients).Write(&buf, tabular.FormatXLSX); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkImportPipeline benchmarks upload to done against an in-memory repository
func BenchmarkImportPipeline(b *testing.B) {
	data := buildCSV(benchRows)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		orch := service.NewOrchestrator(service.OrchestratorConfig{
			Clients:   mocks.NewMockClientRepository(),
			ChunkSize: 100,
			Log:       zerolog.Nop(),
		})
		ctx := context.Background()
		if err := orch.HandleFileSelected(ctx, service.Upload{Filename: "bench.csv", Body: bytes.NewReader(data)}); err != nil {
			b.Fatal(err)
		}
		result, err := orch.ConfirmImport(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if result.Inserted != benchRows {
			b.Fatalf("expected %d inserted, got %d", benchRows, result.Inserted)
		}
	}

	b.ReportMetric(float64(benchRows*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

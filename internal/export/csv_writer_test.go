package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestExportWritesBOMHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger)

	err := w.Export("clientes_ubicacion.csv",
		[]string{"Cliente", "Ciudad", "País"},
		[][]string{
			{"Juan Pérez", "Buenos Aires", "Argentina"},
			{"María García", "Bogotá", "Colombia"},
		})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "clientes_ubicacion.csv"))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "file must start with a UTF-8 BOM")

	reader := csv.NewReader(bytes.NewReader(raw[3:]))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Cliente", "Ciudad", "País"}, rows[0])
	assert.Equal(t, []string{"Juan Pérez", "Buenos Aires", "Argentina"}, rows[1])
}

func TestExportCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	w := NewCSVWriter(dir, testLogger)

	err := w.Export("top_clientes.csv", []string{"Puesto"}, nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "top_clientes.csv"))
	assert.NoError(t, err)
}

func TestExportOverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger)

	require.NoError(t, w.Export("r.csv", []string{"A"}, [][]string{{"old"}}))
	require.NoError(t, w.Export("r.csv", []string{"A"}, [][]string{{"new"}}))

	raw, err := os.ReadFile(filepath.Join(dir, "r.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "new")
	assert.NotContains(t, string(raw), "old")
}

func TestExportLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger)

	require.NoError(t, w.Export("r.csv", []string{"A"}, [][]string{{"1"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r.csv", entries[0].Name())
}

// The exported file must reconstruct the exact display strings on re-parse.
func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger)

	header := []string{"Préstamo", "DNI Cliente", "Cuotas Pendientes", "Monto Total a Pagar"}
	records := [][]string{
		{"7", "20000190", "8", "$ 32,798.96"},
		{"11", "20000278", "3", "$ 17,295.36"},
	}
	require.NoError(t, w.Export("cuotas_pendientes.csv", header, records))

	raw, err := os.ReadFile(filepath.Join(dir, "cuotas_pendientes.csv"))
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, records[0], rows[1])
	assert.Equal(t, records[1], rows[2])
}

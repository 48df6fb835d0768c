package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/models"
)

func sampleProfile(rpps string) models.ScrapedProfile {
	return models.ScrapedProfile{
		Name:       "DUPONT Jean",
		RPPSNumber: rpps,
		Address:    "12 Rue de la Paix, Bâtiment \"A\"",
		City:       "BORDEAUX",
		SourceURL:  "https://annuaire.sante.fr/detail?a=1&b=2",
	}
}

func TestCSVWriter_HeaderOnceWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	writer := NewCSVWriter()

	require.NoError(t, writer.WriteRow(path, sampleProfile("1")))
	require.NoError(t, writer.WriteRow(path, sampleProfile("2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Equal(t, 1, bytes.Count(data, utf8BOM))
	assert.NotContains(t, string(data), "\r\n")

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ProfileCSVHeader(), rows[0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "12 Rue de la Paix, Bâtiment \"A\"", rows[2][5])
}

func TestCSVWriter_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, NewCSVWriter().WriteRow(path, sampleProfile("1")))

	// A fresh writer (new run) must not repeat the header.
	require.NoError(t, NewCSVWriter().WriteRow(path, sampleProfile("2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "RPPS Number"))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestAppendJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, AppendJSONLine(path, map[string]string{"url": "a?b=1&c=<2>"}))
	require.NoError(t, AppendJSONLine(path, map[string]string{"name": "Hélène"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"url":"a?b=1&c=<2>"}`, lines[0])
	assert.Equal(t, `{"name":"Hélène"}`, lines[1])
}

func TestFinalizeAggregate_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "out.jsonl")
	prettyPath := filepath.Join(dir, "out.json")
	content := `{"meta":{"source_url":"a"}}` + "\n\n" + `{bad json` + "\n" + `{"meta":{"source_url":"b"}}` + "\n"
	require.NoError(t, os.WriteFile(jsonlPath, []byte(content), 0644))

	count, err := FinalizeAggregate(jsonlPath, prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(prettyPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"meta\"")

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFinalizeAggregate_SkipsOversizedLine(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "out.jsonl")
	prettyPath := filepath.Join(dir, "out.json")

	huge := `{"blob":"` + strings.Repeat("x", maxRecordLine+10) + `"}`
	content := `{"meta":{"source_url":"a"}}` + "\n" + huge + "\n" + `{"meta":{"source_url":"b"}}` + "\n"
	require.NoError(t, os.WriteFile(jsonlPath, []byte(content), 0644))

	count, err := FinalizeAggregate(jsonlPath, prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFinalizeAggregate_LastLineWithoutNewline(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "out.jsonl")
	prettyPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(`{"a":1}`+"\n"+`{"a":2}`), 0644))

	count, err := FinalizeAggregate(jsonlPath, prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAppendJSONLine_AfterTornTail(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "out.jsonl")
	prettyPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(`{"a":1}`+"\n"+`{"a":2,"b":`), 0644))

	require.NoError(t, AppendJSONLine(jsonlPath, map[string]int{"a": 3}))

	count, err := FinalizeAggregate(jsonlPath, prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var records []map[string]int
	data, err := os.ReadFile(prettyPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Equal(t, []map[string]int{{"a": 1}, {"a": 3}}, records)
}

func TestCSVWriter_AppendAfterTornRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter()
	require.NoError(t, w.WriteRow(path, sampleProfile("1")))

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = file.WriteString("TORN,ROW")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, NewCSVWriter().WriteRow(path, sampleProfile("2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "TORN,ROW", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "DUPONT Jean,2,"))
}

func TestNewRunPaths_SeparatorsStayInFileName(t *testing.T) {
	paths := NewRunPaths("out", "done", "Médecin/généraliste", `../bordeaux\sud`)

	assert.Equal(t, "out", filepath.Dir(paths.CSV))
	assert.Equal(t, "out", filepath.Dir(paths.JSONL))
	assert.Equal(t, "out", filepath.Dir(paths.Pretty))
	assert.Equal(t, "done", filepath.Dir(paths.Done))
	assert.Equal(t, "Médecin-généraliste_..-bordeaux-sud.csv", filepath.Base(paths.CSV))
}

func TestFinalizeAggregate_EmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	prettyPath := filepath.Join(dir, "out.json")

	count, err := FinalizeAggregate(filepath.Join(dir, "missing.jsonl"), prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoFileExists(t, prettyPath)

	emptyPath := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0644))
	count, err = FinalizeAggregate(emptyPath, prettyPath, arbor.NewLogger())
	require.NoError(t, err)
	assert.Zero(t, count)

	data, err := os.ReadFile(prettyPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestWriter_PersistAndFinalize(t *testing.T) {
	dir := t.TempDir()
	paths := NewRunPaths(filepath.Join(dir, "scraped_data"), filepath.Join(dir, "done"), "Médecin", "bordeaux")
	require.NoError(t, paths.EnsureDirs())
	assert.Equal(t, filepath.Join(dir, "scraped_data", "Médecin_bordeaux.jsonl"), paths.JSONL)
	assert.Equal(t, filepath.Join(dir, "done", "Médecin_bordeaux.txt"), paths.Done)

	writer := NewWriter(paths, arbor.NewLogger())
	writer.Persist(sampleProfile("1"))
	writer.Persist(sampleProfile("2"))

	assert.Equal(t, 2, writer.Finalize())
	assert.FileExists(t, paths.CSV)
	assert.FileExists(t, paths.Pretty)
}

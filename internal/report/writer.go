package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dealflow/internal/stats"

	"github.com/rs/zerolog/log"
)

const utf8BOM = "\ufeff"

// Manifest describes the files produced by one report run.
type Manifest struct {
	RunID        string    `json:"run_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Locale       string    `json:"locale"`
	Months       int       `json:"months"`
	KPIRows      int       `json:"kpi_rows"`
	MovementRows int       `json:"movement_rows"`
	SQLRows      int       `json:"sql_rows,omitempty"`
	Files        []string  `json:"files"`
}

// Writer persists report tables into a directory.
type Writer struct {
	dir    string
	format *Formatter
	names  StageNamer
}

func NewWriter(dir string, format *Formatter, names StageNamer) *Writer {
	return &Writer{dir: dir, format: format, names: names}
}

// WriteAll writes the KPI and movement CSVs, the lead funnel CSVs when the result has a funnel,
// the workbook and the manifest, returning the manifest.
func (w *Writer) WriteAll(res *Result) (*Manifest, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	rows := MovementRows(res, w.names)
	stamp := res.GeneratedAt

	kpiPath, err := w.WriteKPIOverview(res.KPIs, stamp)
	if err != nil {
		return nil, err
	}
	movementsPath, err := w.WriteDealMovements(rows, stamp)
	if err != nil {
		return nil, err
	}
	files := []string{filepath.Base(kpiPath), filepath.Base(movementsPath)}
	if res.Funnel != nil {
		paths, err := w.WriteFunnel(*res.Funnel, stamp)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			files = append(files, filepath.Base(p))
		}
	}
	workbookPath, err := w.WriteWorkbook(res.KPIs, rows, res.Funnel, stamp)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		RunID:        res.RunID,
		GeneratedAt:  res.GeneratedAt,
		Locale:       w.format.Locale(),
		Months:       len(res.Months),
		KPIRows:      len(res.KPIs),
		MovementRows: len(rows),
		Files:        append(files, filepath.Base(workbookPath)),
	}
	if res.Funnel != nil {
		m.SQLRows = len(res.Funnel.SQLDetails)
	}
	if _, err := w.WriteManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteKPIOverview writes kpi_overview_<date>.csv.
func (w *Writer) WriteKPIOverview(kpis []stats.MonthlyKPI, stamp time.Time) (string, error) {
	path := w.path("kpi_overview", stamp, "csv")
	if err := writeCSV(path, kpiTable(kpis, w.format)); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("rows", len(kpis)).Msg("Written KPI overview")
	return path, nil
}

// WriteDealMovements writes deal_movements_detail_<date>.csv.
func (w *Writer) WriteDealMovements(rows []MovementRow, stamp time.Time) (string, error) {
	path := w.path("deal_movements_detail", stamp, "csv")
	if err := writeCSV(path, movementTable(rows, w.format)); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Written deal movements")
	return path, nil
}

// WriteManifest writes manifest_<date>.json.
func (w *Writer) WriteManifest(m *Manifest) (string, error) {
	path := w.path("manifest", m.GeneratedAt, "json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) path(name string, stamp time.Time, ext string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.%s", name, stamp.Format("2006-01-02"), ext))
}

// encodeCSV renders a table as UTF-8 CSV with a BOM, the form spreadsheet tools open directly.
func encodeCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(t.records()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(path string, t table) error {
	data, err := encodeCSV(t)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"dealflow/internal/eventlog"

	"github.com/rs/zerolog/log"
)

// ErrNoDataset is returned when no fetched dataset exists in the directory.
var ErrNoDataset = errors.New("no dataset found, run fetch first")

const (
	snapshotPrefix = "deals_snapshot_"
	historyPrefix  = "deal_history_"
	qualityPrefix  = "data_quality_issues_"

	utf8BOM = "\ufeff"
)

var coreSnapshotColumns = []string{
	"deal_id",
	"deal_name",
	"current_amount",
	"current_dealstage",
	"current_closedate",
	"create_date",
	"has_history",
	"fetch_timestamp",
}

var snapshotColumns = append(slices.Clone(coreSnapshotColumns), eventlog.DescriptiveProperties...)

var historyColumns = []string{
	"deal_id",
	"deal_name",
	"property_name",
	"property_value",
	"change_timestamp",
	"source_type",
	"change_order",
}

// Writer persists a fetched Log as dated CSV files. It implements eventlog.Sink.
type Writer struct {
	dir   string
	stamp string
}

func NewWriter(dir string, fetchedAt time.Time) *Writer {
	return &Writer{dir: dir, stamp: fetchedAt.UTC().Format("2006-01-02")}
}

func (w *Writer) SnapshotPath() string {
	return filepath.Join(w.dir, snapshotPrefix+w.stamp+".csv")
}

func (w *Writer) HistoryPath() string {
	return filepath.Join(w.dir, historyPrefix+w.stamp+".csv")
}

func (w *Writer) QualityPath() string {
	return filepath.Join(w.dir, qualityPrefix+w.stamp+".csv")
}

// Flush rewrites the snapshot and history files with the complete log so far.
// History rows are ordered by deal id, property and change order.
func (w *Writer) Flush(l *eventlog.Log) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	snaps := make([][]string, 0, len(l.Snapshots))
	for _, s := range l.Snapshots {
		row := []string{
			s.DealID,
			s.DealName,
			s.CurrentAmount,
			s.CurrentStage,
			s.CurrentCloseDate,
			s.CreateDate,
			strconv.FormatBool(s.HasHistory),
			s.FetchTimestamp,
		}
		for _, key := range eventlog.DescriptiveProperties {
			row = append(row, s.Extra[key])
		}
		snaps = append(snaps, row)
	}
	if err := writeCSV(w.SnapshotPath(), snapshotColumns, snaps); err != nil {
		return err
	}

	records := slices.Clone(l.Records)
	slices.SortStableFunc(records, func(a, b eventlog.ChangeRecord) int {
		if c := strings.Compare(a.DealID, b.DealID); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.Property), string(b.Property)); c != 0 {
			return c
		}
		return a.ChangeOrder - b.ChangeOrder
	})
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.DealID,
			r.DealName,
			string(r.Property),
			r.Value,
			r.Timestamp,
			r.SourceType,
			strconv.Itoa(r.ChangeOrder),
		})
	}
	if err := writeCSV(w.HistoryPath(), historyColumns, rows); err != nil {
		return err
	}

	log.Debug().Int("snapshots", len(snaps)).Int("records", len(rows)).Str("dir", w.dir).Msg("Dataset flushed")
	return nil
}

// Load reads the most recently written snapshot and history files in dir.
func Load(dir string) (*eventlog.Log, error) {
	snapPath, err := LatestFile(dir, snapshotPrefix)
	if err != nil {
		return nil, err
	}
	histPath, err := LatestFile(dir, historyPrefix)
	if err != nil {
		return nil, err
	}

	out := &eventlog.Log{}

	snapRows, err := readCSV(snapPath)
	if err != nil {
		return nil, err
	}
	for _, row := range snapRows {
		hasHistory, _ := strconv.ParseBool(row["has_history"])
		snap := eventlog.Snapshot{
			DealID:           row["deal_id"],
			DealName:         row["deal_name"],
			CurrentAmount:    row["current_amount"],
			CurrentStage:     row["current_dealstage"],
			CurrentCloseDate: row["current_closedate"],
			CreateDate:       row["create_date"],
			HasHistory:       hasHistory,
			FetchTimestamp:   row["fetch_timestamp"],
			Extra:            make(map[string]string),
		}
		for col, v := range row {
			if !slices.Contains(coreSnapshotColumns, col) {
				snap.Extra[col] = v
			}
		}
		out.Snapshots = append(out.Snapshots, snap)
	}

	histRows, err := readCSV(histPath)
	if err != nil {
		return nil, err
	}
	for i, row := range histRows {
		order, err := strconv.Atoi(row["change_order"])
		if err != nil {
			log.Warn().Str("deal", row["deal_id"]).Int("row", i+2).Str("value", row["change_order"]).Msg("Invalid change order, using 0")
		}
		out.Records = append(out.Records, eventlog.ChangeRecord{
			DealID:      row["deal_id"],
			DealName:    row["deal_name"],
			Property:    eventlog.Property(row["property_name"]),
			Value:       row["property_value"],
			Timestamp:   row["change_timestamp"],
			SourceType:  row["source_type"],
			ChangeOrder: order,
		})
	}

	log.Info().
		Str("snapshots", filepath.Base(snapPath)).
		Str("history", filepath.Base(histPath)).
		Int("deals", len(out.Snapshots)).
		Int("records", len(out.Records)).
		Msg("Loaded dataset")
	return out, nil
}

// History groups the log's change records by deal id.
func History(l *eventlog.Log) map[string][]eventlog.ChangeRecord {
	out := make(map[string][]eventlog.ChangeRecord)
	for _, r := range l.Records {
		out[r.DealID] = append(out[r.DealID], r)
	}
	return out
}

// LatestFile returns the most recently modified prefix*.csv file in dir.
func LatestFile(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.csv"))
	if err != nil {
		return "", err
	}
	var latest string
	var latestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		// ties go to the lexically greater (later dated) name
		if latest == "" || info.ModTime().After(latestMod) || (info.ModTime().Equal(latestMod) && m > latest) {
			latest, latestMod = m, info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no %s*.csv in %s", ErrNoDataset, prefix, dir)
	}
	return latest, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func readCSV(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(utf8BOM))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", filepath.Base(path), err)
	}

	var out []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

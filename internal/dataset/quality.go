package dataset

import (
	"dealflow/internal/eventlog"

	"github.com/rs/zerolog/log"
)

// Issue kinds reported by the data quality check.
const (
	IssueMissingName       = "missing_name"
	IssueMissingAmount     = "missing_amount"
	IssueNoHistory         = "no_history"
	IssueInvalidCreateDate = "invalid_create_date"
)

// Issue is one data quality finding for a deal.
type Issue struct {
	DealID   string
	DealName string
	Kind     string
	Value    string
}

// CheckQuality lists deals with missing names or amounts, no history, or an unusable create date.
func CheckQuality(l *eventlog.Log) []Issue {
	var issues []Issue
	for _, s := range l.Snapshots {
		if s.DealName == "" {
			issues = append(issues, Issue{DealID: s.DealID, Kind: IssueMissingName})
		}
		if s.CurrentAmount == "" {
			issues = append(issues, Issue{DealID: s.DealID, DealName: s.DealName, Kind: IssueMissingAmount})
		}
		if !s.HasHistory {
			issues = append(issues, Issue{DealID: s.DealID, DealName: s.DealName, Kind: IssueNoHistory})
		}
		if _, err := eventlog.ParseTime(s.CreateDate); err != nil {
			issues = append(issues, Issue{DealID: s.DealID, DealName: s.DealName, Kind: IssueInvalidCreateDate, Value: s.CreateDate})
		}
	}
	return issues
}

// WriteQualityReport writes data_quality_issues_<date>.csv and returns its path.
func (w *Writer) WriteQualityReport(l *eventlog.Log) (string, []Issue, error) {
	issues := CheckQuality(l)
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{is.DealID, is.DealName, is.Kind, is.Value}
	}
	if err := writeCSV(w.QualityPath(), []string{"deal_id", "deal_name", "issue", "value"}, rows); err != nil {
		return "", nil, err
	}
	log.Info().Int("issues", len(issues)).Str("path", w.QualityPath()).Msg("Written data quality report")
	return w.QualityPath(), issues, nil
}

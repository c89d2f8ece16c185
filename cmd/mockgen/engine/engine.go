package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dealflow/internal/dataset"
	"dealflow/internal/eventlog"
	"dealflow/internal/stages"
)

type GeneratorConfig struct {
	Scenario string // "steady", "churn" or "slip"
	Count    int
	Months   int
	Seed     int64
	Now      time.Time
}

// Pipeline is the default HubSpot sales pipeline the generator walks deals through.
var Pipeline = stages.Taxonomy{
	StageNames: map[string]string{
		"appointmentscheduled":  "Appointment Scheduled",
		"qualifiedtobuy":        "Qualified To Buy",
		"presentationscheduled": "Presentation Scheduled",
		"decisionmakerboughtin": "Decision Maker Bought-In",
		"contractsent":          "Contract Sent",
		"closedwon":             "Closed Won",
		"closedlost":            "Closed Lost",
	},
	PipelineOrder: []string{
		"appointmentscheduled", "qualifiedtobuy", "presentationscheduled",
		"decisionmakerboughtin", "contractsent", "closedwon", "closedlost",
	},
	WonStages:  []string{"closedwon"},
	LostStages: []string{"closedlost"},
}

const sourceType = "MOCK"

type profile struct {
	lossPerStep    float64 // chance of dropping out at each step
	regressPerStep float64
	pushPerStep    float64 // chance of moving the close date out
	k, lambda      float64 // Weibull shape and scale of days spent per stage
}

func profileFor(scenario string) profile {
	switch scenario {
	case "churn":
		return profile{lossPerStep: 0.25, regressPerStep: 0.10, pushPerStep: 0.10, k: 1.2, lambda: 12}
	case "slip":
		return profile{lossPerStep: 0.08, regressPerStep: 0.05, pushPerStep: 0.60, k: 1.5, lambda: 20}
	default:
		return profile{lossPerStep: 0.10, regressPerStep: 0.05, pushPerStep: 0.15, k: 2.0, lambda: 14}
	}
}

// deal accumulates one synthetic deal's change log.
type deal struct {
	id, name string
	orders   map[eventlog.Property]int
	current  map[eventlog.Property]string
	records  []eventlog.ChangeRecord
}

func (d *deal) set(p eventlog.Property, value string, at time.Time) {
	d.orders[p]++
	d.current[p] = value
	d.records = append(d.records, eventlog.ChangeRecord{
		DealID:      d.id,
		DealName:    d.name,
		Property:    p,
		Value:       value,
		Timestamp:   at.UTC().Format(time.RFC3339Nano),
		SourceType:  sourceType,
		ChangeOrder: d.orders[p],
	})
}

// Generate builds a synthetic deal log. Creations are spread evenly over the configured months
// before Now; no change lies after Now. The same seed yields the same log.
func Generate(cfg GeneratorConfig) *eventlog.Log {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Months <= 0 {
		cfg.Months = 6
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	p := profileFor(cfg.Scenario)
	now := cfg.Now.UTC()
	origin := now.AddDate(0, -cfg.Months, 0)
	spacing := now.Sub(origin) / time.Duration(max(cfg.Count, 1))
	open := Pipeline.PipelineOrder[:5]

	l := &eventlog.Log{}
	for i := 0; i < cfg.Count; i++ {
		d := &deal{
			id:      strconv.Itoa(10001 + i),
			name:    fmt.Sprintf("Mock Deal %d", i+1),
			orders:  make(map[eventlog.Property]int),
			current: make(map[eventlog.Property]string),
		}
		created := origin.Add(time.Duration(i) * spacing).Truncate(time.Second)
		amount := 5000 * (1 + rng.Intn(40))
		closeDate := created.AddDate(0, 0, 30+rng.Intn(90))

		d.set(eventlog.Stage, open[0], created)
		d.set(eventlog.Amount, strconv.Itoa(amount), created)
		d.set(eventlog.CloseDate, closeDate.Format("2006-01-02"), created)

		at, pos := created, 0
		for {
			at = at.Add(time.Duration(weibullSample(rng, p.k, p.lambda) * 24 * float64(time.Hour)))
			if at.After(now) {
				break
			}
			if rng.Float64() < p.pushPerStep {
				closeDate = closeDate.AddDate(0, 0, 14+rng.Intn(45))
				d.set(eventlog.CloseDate, closeDate.Format("2006-01-02"), at)
			}
			if rng.Float64() < 0.2 {
				amount = max(1000, amount+1000*(rng.Intn(11)-5))
				d.set(eventlog.Amount, strconv.Itoa(amount), at)
			}

			roll := rng.Float64()
			switch {
			case roll < p.lossPerStep:
				d.set(eventlog.Stage, "closedlost", at)
			case roll < p.lossPerStep+p.regressPerStep && pos > 0:
				pos--
				d.set(eventlog.Stage, open[pos], at)
				continue
			case pos == len(open)-1:
				d.set(eventlog.Stage, "closedwon", at)
			default:
				pos++
				d.set(eventlog.Stage, open[pos], at)
				continue
			}
			break
		}

		l.Snapshots = append(l.Snapshots, eventlog.Snapshot{
			DealID:           d.id,
			DealName:         d.name,
			CurrentAmount:    d.current[eventlog.Amount],
			CurrentStage:     d.current[eventlog.Stage],
			CurrentCloseDate: d.current[eventlog.CloseDate],
			CreateDate:       created.Format(time.RFC3339Nano),
			HasHistory:       true,
			FetchTimestamp:   now.Format(time.RFC3339Nano),
		})
		l.Records = append(l.Records, d.records...)
	}
	return l
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes the log as a dataset into outDir and the pipeline taxonomy to mappingPath.
func Save(outDir, mappingPath string, l *eventlog.Log, fetchedAt time.Time) error {
	if err := dataset.NewWriter(outDir, fetchedAt).Flush(l); err != nil {
		return err
	}
	if mappingPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(mappingPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(Pipeline, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(mappingPath, data, 0644)
}

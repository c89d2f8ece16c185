package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dealflow/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, churn, slip")
	outDir := flag.String("out", "./output", "Output directory for the dataset")
	mapping := flag.String("mapping", filepath.Join("config", "stage_mapping.json"), "Where to write the stage mapping (empty to skip)")
	count := flag.Int("count", 200, "Number of deals to generate")
	months := flag.Int("months", 6, "Months of history to spread deal creation over")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Count:    *count,
		Months:   *months,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d, Months: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Count, cfg.Months, cfg.Seed, *outDir)

	l := engine.Generate(cfg)
	if err := engine.Save(*outDir, *mapping, l, cfg.Now); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %d deals, %d changes.\n", len(l.Snapshots), len(l.Records))
}

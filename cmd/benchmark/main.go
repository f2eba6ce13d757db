// ABOUTME: Command-line runner for the intake scenario benchmark
// ABOUTME: Plays scripted reports against the configured model and writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/harper/emergency-intake/benchmarks/scenarios"
	"github.com/harper/emergency-intake/internal/app"
	"github.com/harper/emergency-intake/internal/config"
	"github.com/harper/emergency-intake/internal/observability"
)

func main() {
	scenarioID := flag.String("scenario", "", "Run one scenario (fire, medical, phone, negation, robbery). If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Print transcripts")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// keep benchmark tickets and sessions out of the real database
	tmpDir, err := os.MkdirTemp("", "intake-bench-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	cfg.DBPath = filepath.Join(tmpDir, "bench.db")
	cfg.CheckpointBackend = config.BackendSQLite

	level := cfg.LogLevel
	if !*verbose {
		level = "warn"
	}
	logger := observability.Init(os.Stderr, level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open application: %v", err)
	}
	defer a.Close()

	selected := scenarios.All()
	if *scenarioID != "" {
		s, ok := scenarios.ByID(*scenarioID)
		if !ok {
			log.Fatalf("Unknown scenario: %s", *scenarioID)
		}
		selected = []scenarios.Scenario{s}
	}

	fmt.Println("========================================")
	fmt.Println("Emergency Intake Scenario Benchmark")
	fmt.Println("========================================")

	runner := scenarios.NewRunner(a, os.Stdout, *verbose)
	results := runner.RunAll(ctx, selected)

	passed := 0
	for _, r := range results {
		fmt.Printf("\n%s: %s\n", r.ScenarioID, r.ScenarioName)
		if r.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", r.ErrorMessage)
		}
		fmt.Printf("  Slot accuracy: %.2f\n", r.SlotAccuracy)
		fmt.Printf("  Faithfulness:  %.2f\n", r.FaithfulnessScore)
		fmt.Printf("  Status: %s\n", r.Status)
		if r.Passed() {
			passed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total: %d  Passed: %d  Failed: %d\n", len(results), passed, len(results)-passed)
	fmt.Println("========================================")

	if err := scenarios.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}

	if passed < len(results) {
		a.Close()
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}
}

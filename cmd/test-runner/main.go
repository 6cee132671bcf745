// Package main runs the gameplay smoke scenarios in synthetic time.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/scenario"
)

func main() {
	seed := flag.Int64("seed", 42, "random seed for every scenario")
	verbose := flag.Bool("v", false, "log engine activity")
	flag.Parse()

	log := logger.Discard()
	if *verbose {
		log = logger.NewLoggerWith(logger.Options{Level: "debug"})
	}

	fmt.Println("🌍 NATIONSHIP - GAMEPLAY SCENARIOS")
	fmt.Println(strings.Repeat("=", 60))

	results := scenario.Run(scenario.Builtin(), *seed, log)
	failed := 0
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			failed++
		}
		fmt.Printf("\n%s %s\n", mark, r.ScenarioName)
		fmt.Printf("   Input:    %s\n", r.Input)
		fmt.Printf("   Expected: %s\n", r.ExpectedOutput)
		fmt.Printf("   Actual:   %s\n", r.ActualOutput)
		if r.Reason != "" {
			fmt.Printf("   Reason:   %s\n", r.Reason)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", len(results)-failed)
	fmt.Printf("   Failed: %d\n", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// Command warpgraph-doctor runs the bounded diagnostic engine against a
// WarpGraph repository and reports findings as a sorted table or JSON.
// Built as a persistent-flag cobra root command, the way a small focused
// operational tool is shaped rather than a full CLI/TUI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/doctor"
	"github.com/cuemby/warpgraph/pkg/log"
	"github.com/cuemby/warpgraph/pkg/objectstore"
)

var (
	dataDir    string
	graphName  string
	pinSha     string
	strict     bool
	jsonOutput bool
	deadline   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(3)
	}
}

var rootCmd = &cobra.Command{
	Use:   "warpgraph-doctor",
	Short: "Run bounded diagnostics against a WarpGraph repository",
	Long: `warpgraph-doctor runs the composable diagnostic check list (ref
integrity, trust record schema, checkpoint coverage, tombstone ratio)
against a graph's object store and reports findings sorted by severity,
then impact, then check id.

Exit codes: 0 ok; 3 warn/fail; 4 strict & any non-ok.`,
	RunE: runDoctor,
}

func init() {
	cobra.OnInitialize(func() {
		log.Init(log.Config{Level: log.InfoLevel})
	})

	rootCmd.Flags().StringVar(&dataDir, "data-dir", "/var/lib/warpgraph", "object store data directory")
	rootCmd.Flags().StringVar(&graphName, "graph", "", "graph name to diagnose (required)")
	rootCmd.Flags().StringVar(&pinSha, "pin", "", "pin the trust-schema check to a specific trust commit sha")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "exit 4 on any non-ok finding instead of 3")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit findings as JSON instead of a table")
	rootCmd.Flags().DurationVar(&deadline, "deadline", doctor.DefaultDeadline, "global run deadline")
	_ = rootCmd.MarkFlagRequired("graph")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	store, err := objectstore.OpenBoltStore(dataDir)
	if err != nil {
		return fmt.Errorf("open object store at %s: %w", dataDir, err)
	}
	defer store.Close()

	crypto := cryptoport.New()
	checks := doctor.DefaultChecks(store, crypto, graphName)
	if pinSha != "" {
		if trustCheck, ok := checks[2].(doctor.TrustSchemaCheck); ok {
			trustCheck.PinSha = pinSha
			checks[2] = trustCheck
		}
	}

	engine := doctor.New(deadline, checks...)
	ctx, cancel := context.WithTimeout(context.Background(), deadline+time.Second)
	defer cancel()
	report := engine.Run(ctx)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printTable(report)
	}

	os.Exit(doctor.ExitCode(report.Health, strict))
	return nil
}

func printTable(report doctor.Report) {
	fmt.Printf("health: %s\n\n", report.Health)
	for _, f := range report.Findings {
		fmt.Printf("[%-4s] %-24s %-12s %-28s %s\n", f.Status, f.Id, f.Impact, f.Code, f.Message)
		if f.Fix != "" {
			fmt.Printf("        fix: %s\n", f.Fix)
		}
	}
}

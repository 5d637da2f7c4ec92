// Command warpgraph-migrate performs the one-way schema-1 → schema-2
// conversion and writes the resulting WarpStateV5 as the first
// checkpoint of a graph. A small, flag-driven, non-cobra tool dedicated
// to one irreversible operation, run once per graph and never folded
// into the normal open/materialize path (pkg/graph.Open refuses an
// unmigrated schema-1 checkpoint with E_SCHEMA_MISMATCH).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/migration"
	"github.com/cuemby/warpgraph/pkg/objectstore"
)

var (
	dataDir   = flag.String("data-dir", "/var/lib/warpgraph", "object store data directory")
	graphName = flag.String("graph", "", "destination graph name (required)")
	legacyIn  = flag.String("legacy-file", "", "path to the exported schema-1 state JSON (required)")
	dryRun    = flag.Bool("dry-run", false, "report what would be migrated without writing a checkpoint")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.Println("WarpGraph schema-1 -> schema-2 migration")
	log.Println("=========================================")

	if *graphName == "" || *legacyIn == "" {
		log.Fatal("both --graph and --legacy-file are required")
	}

	raw, err := os.ReadFile(*legacyIn)
	if err != nil {
		log.Fatalf("read legacy export %s: %v", *legacyIn, err)
	}

	var legacy migration.LegacyStateV1
	if err := json.Unmarshal(raw, &legacy); err != nil {
		log.Fatalf("decode legacy export: %v", err)
	}

	log.Printf("legacy state: %d nodes, %d edges, %d props",
		len(legacy.NodeAlive), len(legacy.EdgeAlive), len(legacy.Prop))

	result, err := migration.Migrate(legacy)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Printf("migrated: %d nodes alive, %d edges alive, %d props visible",
		len(result.State.AliveNodes), len(result.State.AliveEdges), len(result.State.Props))

	if *dryRun {
		log.Println("dry run: no checkpoint written")
		return
	}

	store, err := objectstore.OpenBoltStore(*dataDir)
	if err != nil {
		log.Fatalf("open object store at %s: %v", *dataDir, err)
	}
	defer store.Close()

	ctx := context.Background()
	_, _, found, err := checkpoint.Load(ctx, store, *graphName)
	if err != nil {
		log.Fatalf("check for existing checkpoint: %v", err)
	}
	if found {
		log.Fatalf("graph %q already has a checkpoint; migration only runs against a fresh graph", *graphName)
	}

	res, err := checkpoint.Create(ctx, store, *graphName, result.State, nil)
	if err != nil {
		log.Fatalf("write migrated checkpoint: %v", err)
	}

	log.Printf("migration complete: checkpoint %s (state hash %s)", res.CommitDigest, res.StateHash)
}

// cqlsync applies a declarative schema manifest to a Cassandra cluster:
// it creates the keyspaces, tables and secondary indexes the manifest
// declares and the cluster is missing. With -drop it tears the declared
// objects down instead.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/axonops/cqlsync/internal/config"
	"github.com/axonops/cqlsync/internal/db"
	"github.com/axonops/cqlsync/internal/logger"
	"github.com/axonops/cqlsync/internal/manifest"
	"github.com/axonops/cqlsync/internal/schema"
	"github.com/axonops/cqlsync/internal/sync"
)

func main() {
	var (
		manifestPath   = flag.String("f", "schema.yaml", "Path to the schema manifest")
		host           = flag.String("host", "", "Cassandra host (overrides config)")
		port           = flag.Int("port", 0, "Cassandra port (overrides config)")
		username       = flag.String("u", "", "Username (overrides config)")
		password       = flag.String("p", "", "Password (overrides config)")
		consistency    = flag.String("consistency", "", "Consistency level (e.g. LOCAL_ONE, QUORUM)")
		configFile     = flag.String("config", "", "Path to a custom config file")
		connectTimeout = flag.Int("connect-timeout", 0, "Connection timeout in seconds")
		requestTimeout = flag.Int("request-timeout", 0, "Request timeout in seconds")
		drop           = flag.Bool("drop", false, "Drop the declared tables and keyspaces instead of creating them")
		dryRun         = flag.Bool("dry-run", false, "Report what would change without executing any DDL")
		skipKeyspaces  = flag.Bool("no-create-keyspace", false, "Do not create missing keyspaces when creating tables")
		debug          = flag.Bool("debug", false, "Enable debug logging")
		assumeYes      = flag.Bool("y", false, "Skip the confirmation prompt for -drop")
	)
	flag.Parse()

	if *debug {
		logger.SetDebugEnabled(true)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger.SetDebugEnabled(true)
	}

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}

	keyspaces, err := m.KeyspaceSpecs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}
	tables, err := m.TableSpecs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}

	if *drop && !*dryRun && cfg.RequireConfirmation && !*assumeYes {
		if !confirmDrop(len(tables), len(keyspaces)) {
			fmt.Println("Aborted.")
			os.Exit(1)
		}
	}

	session, err := db.NewSessionWithOptions(db.SessionOptions{
		Host:           *host,
		Port:           *port,
		Username:       *username,
		Password:       *password,
		Consistency:    *consistency,
		ConnectTimeout: *connectTimeout,
		RequestTimeout: *requestTimeout,
		ConfigFile:     *configFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	if *dryRun {
		snap, err := session.Snapshot(planKeyspaces(keyspaces, tables)...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
			os.Exit(1)
		}
		for _, line := range buildPlan(snap, keyspaces, tables, *drop) {
			fmt.Println(line)
		}
		return
	}

	syncer := sync.New(session)
	syncer.CreateMissingKeyspaces = !*skipKeyspaces

	if *drop {
		err = dropAll(syncer, keyspaces, tables)
	} else {
		err = createAll(syncer, keyspaces, tables)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cqlsync: %v\n", err)
		os.Exit(1)
	}
}

// createAll applies keyspaces before tables so table creation never
// races its own keyspace
func createAll(syncer *sync.Synchronizer, keyspaces []schema.KeyspaceSpec, tables []*schema.TableSpec) error {
	for _, ks := range keyspaces {
		if err := syncer.CreateKeyspace(ks); err != nil {
			return err
		}
		fmt.Printf("keyspace %s: ok\n", ks.Name)
	}
	for _, t := range tables {
		if err := syncer.CreateTable(t); err != nil {
			return err
		}
		fmt.Printf("table %s.%s: ok\n", t.Keyspace, t.Name)
	}
	return nil
}

// dropAll removes tables before keyspaces, the reverse of creation order
func dropAll(syncer *sync.Synchronizer, keyspaces []schema.KeyspaceSpec, tables []*schema.TableSpec) error {
	for _, t := range tables {
		if err := syncer.DropTable(t); err != nil {
			return err
		}
		fmt.Printf("table %s.%s: dropped\n", t.Keyspace, t.Name)
	}
	for _, ks := range keyspaces {
		if err := syncer.DropKeyspace(ks.Name); err != nil {
			return err
		}
		fmt.Printf("keyspace %s: dropped\n", ks.Name)
	}
	return nil
}

// planKeyspaces collects the keyspace names the manifest touches,
// deduplicated, so the cluster snapshot is scoped to them
func planKeyspaces(keyspaces []schema.KeyspaceSpec, tables []*schema.TableSpec) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ks := range keyspaces {
		if !seen[ks.Name] {
			seen[ks.Name] = true
			names = append(names, ks.Name)
		}
	}
	for _, t := range tables {
		if !seen[t.Keyspace] {
			seen[t.Keyspace] = true
			names = append(names, t.Keyspace)
		}
	}
	return names
}

// buildPlan diffs the manifest against a cluster snapshot and reports,
// per declared object, what a real run would do
func buildPlan(snap *db.ClusterSnapshot, keyspaces []schema.KeyspaceSpec, tables []*schema.TableSpec, drop bool) []string {
	var lines []string

	if drop {
		for _, t := range tables {
			if snap.HasTable(t.Keyspace, t.Name) {
				lines = append(lines, fmt.Sprintf("table %s.%s: drop", t.Keyspace, t.Name))
			} else {
				lines = append(lines, fmt.Sprintf("table %s.%s: absent", t.Keyspace, t.Name))
			}
		}
		for _, ks := range keyspaces {
			if snap.HasKeyspace(ks.Name) {
				lines = append(lines, fmt.Sprintf("keyspace %s: drop", ks.Name))
			} else {
				lines = append(lines, fmt.Sprintf("keyspace %s: absent", ks.Name))
			}
		}
		return lines
	}

	for _, ks := range keyspaces {
		if snap.HasKeyspace(ks.Name) {
			lines = append(lines, fmt.Sprintf("keyspace %s: exists", ks.Name))
		} else {
			lines = append(lines, fmt.Sprintf("keyspace %s: create", ks.Name))
		}
	}
	for _, t := range tables {
		if snap.HasTable(t.Keyspace, t.Name) {
			lines = append(lines, fmt.Sprintf("table %s.%s: exists", t.Keyspace, t.Name))
		} else {
			lines = append(lines, fmt.Sprintf("table %s.%s: create", t.Keyspace, t.Name))
		}
		for _, col := range t.IndexedColumns() {
			qualified := schema.QualifiedIndexName(t.Name, col.Name)
			if snap.HasIndex(t.Keyspace, qualified) {
				lines = append(lines, fmt.Sprintf("index %s on %s.%s: exists", schema.IndexName(t.Name, col.Name), t.Keyspace, t.Name))
			} else {
				lines = append(lines, fmt.Sprintf("index %s on %s.%s: create", schema.IndexName(t.Name, col.Name), t.Keyspace, t.Name))
			}
		}
	}
	return lines
}

func confirmDrop(tableCount, keyspaceCount int) bool {
	fmt.Printf("About to drop %d table(s) and %d keyspace(s). Continue? [y/N] ", tableCount, keyspaceCount)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

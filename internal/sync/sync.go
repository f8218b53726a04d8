// Package sync orchestrates one-directional schema synchronization:
// read the cluster's catalog, diff it against declared specs, and issue
// the missing CREATE statements. Creation is best-effort idempotent;
// two callers can both pass the existence check, in which case the
// server's "already exists" rejection of the loser is swallowed.
package sync

import (
	"fmt"

	"github.com/axonops/cqlsync/internal/logger"
	"github.com/axonops/cqlsync/internal/schema"
)

// MetadataReader lists existing catalog objects. State is re-read on
// every call, never cached.
type MetadataReader interface {
	KeyspaceNames() ([]string, error)
	TableNames(keyspace string) ([]string, error)
	IndexNames(keyspace string) ([]string, error)
}

// Executor runs a fire-and-forget DDL statement
type Executor interface {
	ExecuteDDL(stmt string) error
}

// Connection is the subset of a database session the synchronizer needs
type Connection interface {
	MetadataReader
	Executor
}

// Synchronizer diffs declared schema specs against the live catalog and
// issues DDL for whatever is missing
type Synchronizer struct {
	conn Connection

	// CreateMissingKeyspaces makes CreateTable ensure the owning
	// keyspace exists (with default replication) before creating
	// the table
	CreateMissingKeyspaces bool
}

// New returns a Synchronizer over the given connection
func New(conn Connection) *Synchronizer {
	return &Synchronizer{
		conn:                   conn,
		CreateMissingKeyspaces: true,
	}
}

// CreateKeyspace creates the keyspace if it doesn't exist. Calling it
// for an existing keyspace is a no-op.
func (s *Synchronizer) CreateKeyspace(spec schema.KeyspaceSpec) error {
	if err := spec.Validate(); err != nil {
		return &SchemaError{Op: "create keyspace", Msg: "invalid spec", Err: err}
	}

	names, err := s.conn.KeyspaceNames()
	if err != nil {
		return fmt.Errorf("create keyspace %s: %w", spec.Name, err)
	}
	if contains(names, spec.Name) {
		logger.DebugfToFile("Sync", "Keyspace %s already exists, skipping", spec.Name)
		return nil
	}

	stmt := schema.CreateKeyspaceStatement(spec)
	if err := s.conn.ExecuteDDL(stmt); err != nil {
		if alreadyExists(err) {
			logger.DebugfToFile("Sync", "Keyspace %s lost create race, treating as existing", spec.Name)
			return nil
		}
		return &SchemaError{Op: "create keyspace", Msg: spec.Name, Err: err}
	}

	return nil
}

// DropKeyspace drops the keyspace. Dropping a nonexistent keyspace is a
// silent no-op; no statement is issued.
func (s *Synchronizer) DropKeyspace(name string) error {
	names, err := s.conn.KeyspaceNames()
	if err != nil {
		return fmt.Errorf("drop keyspace %s: %w", name, err)
	}
	if !contains(names, name) {
		return nil
	}

	if err := s.conn.ExecuteDDL(schema.DropKeyspaceStatement(name)); err != nil {
		return &SchemaError{Op: "drop keyspace", Msg: name, Err: err}
	}

	return nil
}

// CreateTable creates the table and any missing secondary indexes for a
// spec. An abstract spec always fails with a SchemaError. An existing
// table is left untouched; the index pass still runs so the index set
// converges.
func (s *Synchronizer) CreateTable(spec *schema.TableSpec) error {
	if spec.Abstract {
		return &SchemaError{Op: "create table", Msg: "cannot create table from abstract spec " + spec.Name}
	}
	if err := spec.Validate(); err != nil {
		return &SchemaError{Op: "create table", Msg: "invalid spec", Err: err}
	}

	if s.CreateMissingKeyspaces {
		if err := s.CreateKeyspace(schema.NewKeyspaceSpec(spec.Keyspace)); err != nil {
			return err
		}
	}

	tables, err := s.conn.TableNames(spec.Keyspace)
	if err != nil {
		return fmt.Errorf("create table %s: %w", spec.QualifiedName(), err)
	}

	if !contains(tables, spec.Name) {
		stmt := schema.CreateTableStatement(spec)
		if err := s.conn.ExecuteDDL(stmt); err != nil {
			// Old servers don't report table names in the catalog fast
			// enough for the existence check to be reliable, so examine
			// the failure and ignore the create race.
			if !alreadyExists(err) {
				return &SchemaError{Op: "create table", Msg: spec.QualifiedName(), Err: err}
			}
			logger.DebugfToFile("Sync", "Table %s lost create race, treating as existing", spec.QualifiedName())
		}
	} else {
		logger.DebugfToFile("Sync", "Table %s already exists, skipping", spec.QualifiedName())
	}

	return s.createMissingIndexes(spec)
}

// createMissingIndexes issues CREATE INDEX for every indexed column
// whose deterministic index name isn't in the catalog yet
func (s *Synchronizer) createMissingIndexes(spec *schema.TableSpec) error {
	indexed := spec.IndexedColumns()
	if len(indexed) == 0 {
		return nil
	}

	existing, err := s.conn.IndexNames(spec.Keyspace)
	if err != nil {
		return fmt.Errorf("create indexes for %s: %w", spec.QualifiedName(), err)
	}

	for _, col := range indexed {
		if contains(existing, schema.QualifiedIndexName(spec.Name, col.Name)) {
			continue
		}
		stmt := schema.CreateIndexStatement(spec, col)
		if err := s.conn.ExecuteDDL(stmt); err != nil {
			if alreadyExists(err) {
				logger.DebugfToFile("Sync", "Index on %s.%s lost create race, treating as existing", spec.Name, col.Name)
				continue
			}
			return &SchemaError{Op: "create index", Msg: schema.IndexName(spec.Name, col.Name), Err: err}
		}
	}

	return nil
}

// DropTable drops the table. Dropping a nonexistent table is a silent
// no-op; no statement is issued.
func (s *Synchronizer) DropTable(spec *schema.TableSpec) error {
	tables, err := s.conn.TableNames(spec.Keyspace)
	if err != nil {
		return fmt.Errorf("drop table %s: %w", spec.QualifiedName(), err)
	}
	if !contains(tables, spec.Name) {
		return nil
	}

	if err := s.conn.ExecuteDDL(schema.DropTableStatement(spec)); err != nil {
		return &SchemaError{Op: "drop table", Msg: spec.QualifiedName(), Err: err}
	}

	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

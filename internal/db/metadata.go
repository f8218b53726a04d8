package db

import (
	"fmt"
	"sort"
)

// ClusterSnapshot is a point-in-time view of the cluster's schema catalog.
// It is re-read on every synchronization pass, never cached.
type ClusterSnapshot struct {
	Keyspaces []string
	Tables    map[string][]string // keyspace -> table names
	Indexes   map[string][]string // keyspace -> qualified "<table>.<index>" names
}

// HasKeyspace reports whether the keyspace exists in the snapshot
func (cs *ClusterSnapshot) HasKeyspace(name string) bool {
	for _, ks := range cs.Keyspaces {
		if ks == name {
			return true
		}
	}
	return false
}

// HasTable reports whether the table exists in the snapshot
func (cs *ClusterSnapshot) HasTable(keyspace, table string) bool {
	for _, t := range cs.Tables[keyspace] {
		if t == table {
			return true
		}
	}
	return false
}

// HasIndex reports whether the qualified "<table>.<index>" name exists in the snapshot
func (cs *ClusterSnapshot) HasIndex(keyspace, qualifiedName string) bool {
	for _, idx := range cs.Indexes[keyspace] {
		if idx == qualifiedName {
			return true
		}
	}
	return false
}

// KeyspaceNames lists the names of all existing keyspaces
func (s *Session) KeyspaceNames() ([]string, error) {
	query := `SELECT keyspace_name FROM system_schema.keyspaces`
	if !s.IsVersion3OrHigher() {
		// Pre-3.0 catalog location
		query = `SELECT keyspace_name FROM system.schema_keyspaces`
	}

	iter := s.Query(query).Iter()

	var names []string
	var name string
	for iter.Scan(&name) {
		names = append(names, name)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list keyspaces: %v", err)
	}

	sort.Strings(names)
	return names, nil
}

// TableNames lists the names of all tables in a keyspace
func (s *Session) TableNames(keyspace string) ([]string, error) {
	query := `SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?`
	if !s.IsVersion3OrHigher() {
		query = `SELECT columnfamily_name FROM system.schema_columnfamilies WHERE keyspace_name = ?`
	}

	iter := s.Query(query, keyspace).Iter()

	var names []string
	var name string
	for iter.Scan(&name) {
		names = append(names, name)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list tables for keyspace %s: %v", keyspace, err)
	}

	sort.Strings(names)
	return names, nil
}

// IndexNames lists all secondary index names in a keyspace, qualified
// as "<table>.<index>" so names are unambiguous across tables
func (s *Session) IndexNames(keyspace string) ([]string, error) {
	if !s.IsVersion3OrHigher() {
		return s.legacyIndexNames(keyspace)
	}

	query := `SELECT table_name, index_name FROM system_schema.indexes WHERE keyspace_name = ?`
	iter := s.Query(query, keyspace).Iter()

	var names []string
	var tableName, indexName string
	for iter.Scan(&tableName, &indexName) {
		names = append(names, tableName+"."+indexName)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list indexes for keyspace %s: %v", keyspace, err)
	}

	sort.Strings(names)
	return names, nil
}

// legacyIndexNames reads index names from the pre-3.0 IndexInfo table,
// whose table_name column actually holds the keyspace name and whose
// index_name values already carry the "<table>.<index>" form
func (s *Session) legacyIndexNames(keyspace string) ([]string, error) {
	iter := s.Query(`SELECT index_name FROM system."IndexInfo" WHERE table_name = ?`, keyspace).Iter()

	var names []string
	var name string
	for iter.Scan(&name) {
		names = append(names, name)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list indexes for keyspace %s: %v", keyspace, err)
	}

	sort.Strings(names)
	return names, nil
}

// Snapshot reads the current catalog state for the given keyspaces.
// With no arguments it covers every keyspace in the cluster.
func (s *Session) Snapshot(keyspaces ...string) (*ClusterSnapshot, error) {
	all, err := s.KeyspaceNames()
	if err != nil {
		return nil, err
	}

	snapshot := &ClusterSnapshot{
		Keyspaces: all,
		Tables:    make(map[string][]string),
		Indexes:   make(map[string][]string),
	}

	targets := keyspaces
	if len(targets) == 0 {
		targets = all
	}

	for _, ks := range targets {
		if !snapshot.HasKeyspace(ks) {
			continue
		}
		tables, err := s.TableNames(ks)
		if err != nil {
			return nil, err
		}
		snapshot.Tables[ks] = tables

		indexes, err := s.IndexNames(ks)
		if err != nil {
			return nil, err
		}
		snapshot.Indexes[ks] = indexes
	}

	return snapshot, nil
}

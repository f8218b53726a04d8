// Package schema holds static schema descriptors and the DDL statement
// builders that turn them into CQL text. Builders are pure string
// construction so quoting and escaping stay unit-testable without a
// live connection.
package schema

import "fmt"

// ClusteringOrder is the on-disk sort order declared for a clustering key
type ClusteringOrder string

const (
	OrderUnset ClusteringOrder = ""
	OrderAsc   ClusteringOrder = "ASC"
	OrderDesc  ClusteringOrder = "DESC"
)

// DefaultReadRepairChance matches the historical server-side default
// used when a table spec doesn't declare one
const DefaultReadRepairChance = 0.1

// ColumnSpec describes one column of a declared table
type ColumnSpec struct {
	Name            string // db-facing field name
	Type            string // CQL type fragment, e.g. "text", "map<text, int>"
	PartitionKey    bool
	PrimaryKey      bool // true for partition and clustering keys
	Indexed         bool
	ClusteringOrder ClusteringOrder
}

// isClusteringKey reports whether the column is part of the primary key
// but not of the partition key
func (c ColumnSpec) isClusteringKey() bool {
	return c.PrimaryKey && !c.PartitionKey
}

// TableSpec is a statically declared table schema. Column order is
// declaration order and is preserved through DDL generation.
type TableSpec struct {
	Keyspace         string
	Name             string // bare table name
	Abstract         bool   // declares shape only, no backing table
	Columns          []ColumnSpec
	ReadRepairChance float64
}

// QualifiedName returns the keyspace-qualified table name
func (t *TableSpec) QualifiedName() string {
	return quoteIdentifier(t.Keyspace) + "." + quoteIdentifier(t.Name)
}

// PartitionKeys returns the partition-key columns in declaration order
func (t *TableSpec) PartitionKeys() []ColumnSpec {
	var keys []ColumnSpec
	for _, col := range t.Columns {
		if col.PartitionKey {
			keys = append(keys, col)
		}
	}
	return keys
}

// ClusteringKeys returns the clustering-key columns in declaration order
func (t *TableSpec) ClusteringKeys() []ColumnSpec {
	var keys []ColumnSpec
	for _, col := range t.Columns {
		if col.isClusteringKey() {
			keys = append(keys, col)
		}
	}
	return keys
}

// IndexedColumns returns the columns flagged for secondary indexing,
// in declaration order
func (t *TableSpec) IndexedColumns() []ColumnSpec {
	var cols []ColumnSpec
	for _, col := range t.Columns {
		if col.Indexed {
			cols = append(cols, col)
		}
	}
	return cols
}

// Validate checks the spec before any DDL synthesis: column names must
// be unique, every column needs a type, partition keys must be declared
// as primary keys, and at least one partition key is required.
func (t *TableSpec) Validate() error {
	if t.Keyspace == "" {
		return fmt.Errorf("table %q has no keyspace", t.Name)
	}
	if t.Name == "" {
		return fmt.Errorf("table in keyspace %q has no name", t.Keyspace)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("table %s.%s has a column with no name", t.Keyspace, t.Name)
		}
		if col.Type == "" {
			return fmt.Errorf("column %q of table %s.%s has no type", col.Name, t.Keyspace, t.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column name %q in table %s.%s", col.Name, t.Keyspace, t.Name)
		}
		seen[col.Name] = true

		if col.PartitionKey && !col.PrimaryKey {
			return fmt.Errorf("partition key %q of table %s.%s must also be a primary key", col.Name, t.Keyspace, t.Name)
		}
		if col.ClusteringOrder != OrderUnset && !col.isClusteringKey() {
			return fmt.Errorf("column %q of table %s.%s declares a clustering order but is not a clustering key", col.Name, t.Keyspace, t.Name)
		}
		switch col.ClusteringOrder {
		case OrderUnset, OrderAsc, OrderDesc:
		default:
			return fmt.Errorf("column %q of table %s.%s has invalid clustering order %q", col.Name, t.Keyspace, t.Name, col.ClusteringOrder)
		}
	}

	if len(t.PartitionKeys()) == 0 {
		return fmt.Errorf("table %s.%s has no partition key", t.Keyspace, t.Name)
	}

	return nil
}

// KeyspaceSpec describes a keyspace to create. Extra replication options
// are merged into the replication map and override the class and factor
// on key conflicts.
type KeyspaceSpec struct {
	Name               string
	StrategyClass      string
	ReplicationFactor  int
	DurableWrites      bool
	ReplicationOptions map[string]interface{}
}

// NewKeyspaceSpec returns a KeyspaceSpec with the historical defaults:
// SimpleStrategy, replication factor 3, durable writes on
func NewKeyspaceSpec(name string) KeyspaceSpec {
	return KeyspaceSpec{
		Name:              name,
		StrategyClass:     "SimpleStrategy",
		ReplicationFactor: 3,
		DurableWrites:     true,
	}
}

// Validate checks the keyspace spec
func (k *KeyspaceSpec) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("keyspace has no name")
	}
	if k.StrategyClass == "" {
		return fmt.Errorf("keyspace %q has no replication strategy class", k.Name)
	}
	if k.ReplicationFactor < 1 {
		return fmt.Errorf("keyspace %q has invalid replication factor %d", k.Name, k.ReplicationFactor)
	}
	return nil
}

package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CreateKeyspaceStatement builds the CREATE KEYSPACE statement for a spec.
// The replication map always carries the strategy class and replication
// factor; extra replication options follow in sorted key order and take
// precedence on conflicting keys. The DURABLE_WRITES clause is appended
// only for non-SimpleStrategy keyspaces, matching the historical behavior
// of servers that reject it for the default strategy.
func CreateKeyspaceStatement(ks KeyspaceSpec) string {
	classValue := interface{}(ks.StrategyClass)
	factorValue := interface{}(ks.ReplicationFactor)

	extras := make(map[string]interface{}, len(ks.ReplicationOptions))
	for key, value := range ks.ReplicationOptions {
		switch key {
		case "class":
			classValue = value
		case "replication_factor":
			factorValue = value
		default:
			extras[key] = value
		}
	}

	parts := []string{
		"'class': " + formatReplicationValue(classValue),
		"'replication_factor': " + formatReplicationValue(factorValue),
	}

	extraKeys := make([]string, 0, len(extras))
	for key := range extras {
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		parts = append(parts, fmt.Sprintf("'%s': %s", escapeString(key), formatReplicationValue(extras[key])))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CREATE KEYSPACE %s WITH REPLICATION = {%s}",
		quoteIdentifier(ks.Name), strings.Join(parts, ", ")))

	if ks.StrategyClass != "SimpleStrategy" {
		sb.WriteString(fmt.Sprintf(" AND DURABLE_WRITES = %t", ks.DurableWrites))
	}

	return sb.String()
}

// DropKeyspaceStatement builds the DROP KEYSPACE statement
func DropKeyspaceStatement(name string) string {
	return "DROP KEYSPACE " + quoteIdentifier(name)
}

// CreateTableStatement builds the CREATE TABLE statement for a spec.
// Columns appear in declaration order. The PRIMARY KEY clause is the
// parenthesized partition-key tuple followed by the clustering keys,
// each group in declaration order. A clustering order clause is added
// only when some clustering key declares a non-default (DESC) order.
func CreateTableStatement(t *TableSpec) string {
	var defs []string
	var partitionKeys, clusteringKeys []string

	for _, col := range t.Columns {
		defs = append(defs, quoteIdentifier(col.Name)+" "+col.Type)
		switch {
		case col.PartitionKey:
			partitionKeys = append(partitionKeys, quoteIdentifier(col.Name))
		case col.isClusteringKey():
			clusteringKeys = append(clusteringKeys, quoteIdentifier(col.Name))
		}
	}

	primaryKey := "PRIMARY KEY ((" + strings.Join(partitionKeys, ", ") + ")"
	if len(clusteringKeys) > 0 {
		primaryKey += ", " + strings.Join(clusteringKeys, ", ")
	}
	primaryKey += ")"
	defs = append(defs, primaryKey)

	withParts := []string{"read_repair_chance = " + formatFloat(t.ReadRepairChance)}

	if orderClause := clusteringOrderClause(t); orderClause != "" {
		withParts = append(withParts, orderClause)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s) WITH %s",
		t.QualifiedName(), strings.Join(defs, ", "), strings.Join(withParts, " AND "))
}

// clusteringOrderClause returns the clustering order option, or "" when
// every clustering key uses the default ascending order
func clusteringOrderClause(t *TableSpec) string {
	clusteringKeys := t.ClusteringKeys()

	nonDefault := false
	for _, col := range clusteringKeys {
		if col.ClusteringOrder == OrderDesc {
			nonDefault = true
			break
		}
	}
	if !nonDefault {
		return ""
	}

	orders := make([]string, 0, len(clusteringKeys))
	for _, col := range clusteringKeys {
		order := col.ClusteringOrder
		if order == OrderUnset {
			order = OrderAsc
		}
		orders = append(orders, quoteIdentifier(col.Name)+" "+string(order))
	}

	return "clustering order by (" + strings.Join(orders, ", ") + ")"
}

// DropTableStatement builds the DROP TABLE statement
func DropTableStatement(t *TableSpec) string {
	return "DROP TABLE " + t.QualifiedName()
}

// IndexName returns the deterministic name for a secondary index on a
// column. The name doubles as the idempotence key when checking for
// pre-existing indexes.
func IndexName(table, column string) string {
	return fmt.Sprintf("index_%s_%s", table, column)
}

// QualifiedIndexName returns the "<table>.<index>" form the catalog
// reader reports index names in
func QualifiedIndexName(table, column string) string {
	return table + "." + IndexName(table, column)
}

// CreateIndexStatement builds the CREATE INDEX statement for one column
func CreateIndexStatement(t *TableSpec, col ColumnSpec) string {
	return fmt.Sprintf(`CREATE INDEX %s ON %s ("%s")`,
		IndexName(t.Name, col.Name), t.QualifiedName(), strings.ReplaceAll(col.Name, `"`, `""`))
}

// quoteIdentifier double-quotes an identifier when CQL requires it:
// reserved words, special characters, leading digits, or uppercase
func quoteIdentifier(name string) string {
	// Check if identifier needs quoting
	needsQuoting := false

	// Reserved words (simplified list)
	reserved := map[string]bool{
		"add": true, "allow": true, "alter": true, "and": true, "any": true,
		"apply": true, "asc": true, "authorize": true, "batch": true, "begin": true,
		"by": true, "columnfamily": true, "create": true, "delete": true, "desc": true,
		"drop": true, "each_quorum": true, "from": true, "grant": true, "in": true,
		"index": true, "inet": true, "infinity": true, "insert": true, "into": true,
		"key": true, "keyspace": true, "keyspaces": true, "limit": true, "local_one": true,
		"local_quorum": true, "modify": true, "nan": true, "norecursive": true, "not": true,
		"of": true, "on": true, "one": true, "order": true, "password": true,
		"primary": true, "quorum": true, "rename": true, "revoke": true, "schema": true,
		"select": true, "set": true, "table": true, "three": true, "to": true,
		"token": true, "truncate": true, "two": true, "unlogged": true, "update": true,
		"use": true, "using": true, "where": true, "with": true,
	}

	lower := strings.ToLower(name)
	if reserved[lower] {
		needsQuoting = true
	}

	// Check for special characters
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			needsQuoting = true
			break
		}
	}

	// Check if starts with number
	if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
		needsQuoting = true
	}

	// Check for uppercase (CQL identifiers are case-insensitive unless quoted)
	for _, c := range name {
		if c >= 'A' && c <= 'Z' {
			needsQuoting = true
			break
		}
	}

	if needsQuoting {
		return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "\"\""))
	}

	return name
}

// escapeString doubles single quotes for CQL string literals
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// formatReplicationValue renders a replication map value: numbers stay
// bare, everything else becomes a single-quoted string literal
func formatReplicationValue(value interface{}) string {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return "'" + escapeString(v) + "'"
	default:
		return "'" + escapeString(fmt.Sprintf("%v", v)) + "'"
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

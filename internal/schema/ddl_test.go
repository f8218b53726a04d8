package schema

import (
	"testing"
)

func TestCreateKeyspaceStatement(t *testing.T) {
	tests := []struct {
		name     string
		spec     KeyspaceSpec
		expected string
	}{
		{
			name:     "defaults omit durable writes",
			spec:     NewKeyspaceSpec("app"),
			expected: "CREATE KEYSPACE app WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 3}",
		},
		{
			name: "network topology strategy carries durable writes",
			spec: KeyspaceSpec{
				Name:              "app",
				StrategyClass:     "NetworkTopologyStrategy",
				ReplicationFactor: 3,
				DurableWrites:     true,
				ReplicationOptions: map[string]interface{}{
					"dc1": 3,
					"dc2": 2,
				},
			},
			expected: "CREATE KEYSPACE app WITH REPLICATION = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3, 'dc1': 3, 'dc2': 2} AND DURABLE_WRITES = true",
		},
		{
			name: "durable writes disabled",
			spec: KeyspaceSpec{
				Name:              "app",
				StrategyClass:     "NetworkTopologyStrategy",
				ReplicationFactor: 3,
				DurableWrites:     false,
			},
			expected: "CREATE KEYSPACE app WITH REPLICATION = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3} AND DURABLE_WRITES = false",
		},
		{
			name: "extra options override conflicting keys",
			spec: KeyspaceSpec{
				Name:              "app",
				StrategyClass:     "SimpleStrategy",
				ReplicationFactor: 3,
				DurableWrites:     true,
				ReplicationOptions: map[string]interface{}{
					"replication_factor": 5,
				},
			},
			expected: "CREATE KEYSPACE app WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 5}",
		},
		{
			name: "string replication values are quoted",
			spec: KeyspaceSpec{
				Name:              "app",
				StrategyClass:     "NetworkTopologyStrategy",
				ReplicationFactor: 3,
				DurableWrites:     true,
				ReplicationOptions: map[string]interface{}{
					"dc1": "3",
				},
			},
			expected: "CREATE KEYSPACE app WITH REPLICATION = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3, 'dc1': '3'} AND DURABLE_WRITES = true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateKeyspaceStatement(tt.spec)
			if got != tt.expected {
				t.Errorf("CreateKeyspaceStatement() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDropKeyspaceStatement(t *testing.T) {
	if got := DropKeyspaceStatement("app"); got != "DROP KEYSPACE app" {
		t.Errorf("DropKeyspaceStatement() = %q", got)
	}
}

func TestCreateTableStatement(t *testing.T) {
	tests := []struct {
		name     string
		spec     *TableSpec
		expected string
	}{
		{
			name: "single partition key",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "users",
				ReadRepairChance: 0.1,
				Columns: []ColumnSpec{
					{Name: "id", Type: "uuid", PartitionKey: true, PrimaryKey: true},
					{Name: "email", Type: "text"},
				},
			},
			expected: "CREATE TABLE app.users (id uuid, email text, PRIMARY KEY ((id))) WITH read_repair_chance = 0.1",
		},
		{
			name: "partition and clustering keys preserve declaration order",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "events",
				ReadRepairChance: 0.1,
				Columns: []ColumnSpec{
					{Name: "pk1", Type: "uuid", PartitionKey: true, PrimaryKey: true},
					{Name: "ck1", Type: "timestamp", PrimaryKey: true},
					{Name: "ck2", Type: "int", PrimaryKey: true},
					{Name: "payload", Type: "blob"},
				},
			},
			expected: "CREATE TABLE app.events (pk1 uuid, ck1 timestamp, ck2 int, payload blob, PRIMARY KEY ((pk1), ck1, ck2)) WITH read_repair_chance = 0.1",
		},
		{
			name: "composite partition key",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "metrics",
				ReadRepairChance: 0.05,
				Columns: []ColumnSpec{
					{Name: "pk1", Type: "text", PartitionKey: true, PrimaryKey: true},
					{Name: "pk2", Type: "int", PartitionKey: true, PrimaryKey: true},
					{Name: "ck1", Type: "timestamp", PrimaryKey: true},
					{Name: "value", Type: "double"},
				},
			},
			expected: "CREATE TABLE app.metrics (pk1 text, pk2 int, ck1 timestamp, value double, PRIMARY KEY ((pk1, pk2), ck1)) WITH read_repair_chance = 0.05",
		},
		{
			name: "descending clustering order emits the order clause",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "timeline",
				ReadRepairChance: 0.1,
				Columns: []ColumnSpec{
					{Name: "id", Type: "uuid", PartitionKey: true, PrimaryKey: true},
					{Name: "created", Type: "timeuuid", PrimaryKey: true, ClusteringOrder: OrderDesc},
					{Name: "seq", Type: "int", PrimaryKey: true},
				},
			},
			expected: "CREATE TABLE app.timeline (id uuid, created timeuuid, seq int, PRIMARY KEY ((id), created, seq)) WITH read_repair_chance = 0.1 AND clustering order by (created DESC, seq ASC)",
		},
		{
			name: "all-default clustering order omits the order clause",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "timeline",
				ReadRepairChance: 0.1,
				Columns: []ColumnSpec{
					{Name: "id", Type: "uuid", PartitionKey: true, PrimaryKey: true},
					{Name: "created", Type: "timeuuid", PrimaryKey: true, ClusteringOrder: OrderAsc},
				},
			},
			expected: "CREATE TABLE app.timeline (id uuid, created timeuuid, PRIMARY KEY ((id), created)) WITH read_repair_chance = 0.1",
		},
		{
			name: "identifiers that need quoting",
			spec: &TableSpec{
				Keyspace:         "app",
				Name:             "order",
				ReadRepairChance: 0.1,
				Columns: []ColumnSpec{
					{Name: "Id", Type: "uuid", PartitionKey: true, PrimaryKey: true},
					{Name: "select", Type: "text"},
				},
			},
			expected: `CREATE TABLE app."order" ("Id" uuid, "select" text, PRIMARY KEY (("Id"))) WITH read_repair_chance = 0.1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateTableStatement(tt.spec)
			if got != tt.expected {
				t.Errorf("CreateTableStatement() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDropTableStatement(t *testing.T) {
	spec := &TableSpec{Keyspace: "app", Name: "users"}
	if got := DropTableStatement(spec); got != "DROP TABLE app.users" {
		t.Errorf("DropTableStatement() = %q", got)
	}
}

func TestIndexNaming(t *testing.T) {
	if got := IndexName("users", "email"); got != "index_users_email" {
		t.Errorf("IndexName() = %q, want %q", got, "index_users_email")
	}

	if got := QualifiedIndexName("users", "email"); got != "users.index_users_email" {
		t.Errorf("QualifiedIndexName() = %q, want %q", got, "users.index_users_email")
	}
}

func TestCreateIndexStatement(t *testing.T) {
	spec := &TableSpec{
		Keyspace: "app",
		Name:     "users",
		Columns: []ColumnSpec{
			{Name: "id", Type: "uuid", PartitionKey: true, PrimaryKey: true},
			{Name: "email", Type: "text", Indexed: true},
		},
	}

	got := CreateIndexStatement(spec, spec.Columns[1])
	expected := `CREATE INDEX index_users_email ON app.users ("email")`
	if got != expected {
		t.Errorf("CreateIndexStatement() = %q, want %q", got, expected)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "users"},
		{"user_events", "user_events"},
		{"Users", `"Users"`},
		{"select", `"select"`},
		{"1table", `"1table"`},
		{"col-name", `"col-name"`},
		{`quo"ted`, `"quo""ted"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := quoteIdentifier(tt.input); got != tt.expected {
				t.Errorf("quoteIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

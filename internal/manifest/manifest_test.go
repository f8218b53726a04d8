package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/cqlsync/internal/schema"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
keyspaces:
  - name: app
    strategy_class: NetworkTopologyStrategy
    replication_factor: 3
    replication_options:
      dc1: 3
      dc2: 2

tables:
  - keyspace: app
    name: users
    columns:
      - name: id
        type: uuid
        partition_key: true
      - name: created
        type: timeuuid
        clustering_key: true
        order: DESC
      - name: email
        type: text
        index: true
`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Keyspaces, 1)
	require.Len(t, m.Tables, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeManifest(t, "keyspaces: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyManifest(t *testing.T) {
	path := writeManifest(t, "keyspaces: []\ntables: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestKeyspaceSpecs(t *testing.T) {
	t.Run("defaults are filled", func(t *testing.T) {
		m := &Manifest{Keyspaces: []KeyspaceDef{{Name: "app"}}}

		specs, err := m.KeyspaceSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, "SimpleStrategy", specs[0].StrategyClass)
		assert.Equal(t, 3, specs[0].ReplicationFactor)
		assert.True(t, specs[0].DurableWrites)
	})

	t.Run("explicit values override defaults", func(t *testing.T) {
		durable := false
		m := &Manifest{Keyspaces: []KeyspaceDef{{
			Name:              "app",
			StrategyClass:     "NetworkTopologyStrategy",
			ReplicationFactor: 5,
			DurableWrites:     &durable,
			ReplicationOptions: map[string]interface{}{
				"dc1": 3,
			},
		}}}

		specs, err := m.KeyspaceSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, "NetworkTopologyStrategy", specs[0].StrategyClass)
		assert.Equal(t, 5, specs[0].ReplicationFactor)
		assert.False(t, specs[0].DurableWrites)
		assert.Equal(t, map[string]interface{}{"dc1": 3}, specs[0].ReplicationOptions)
	})

	t.Run("invalid keyspace is rejected", func(t *testing.T) {
		m := &Manifest{Keyspaces: []KeyspaceDef{{Name: ""}}}
		_, err := m.KeyspaceSpecs()
		assert.Error(t, err)
	})
}

func TestTableSpecs(t *testing.T) {
	t.Run("flags map onto column specs", func(t *testing.T) {
		m := &Manifest{Tables: []TableDef{{
			Keyspace: "app",
			Name:     "users",
			Columns: []ColumnDef{
				{Name: "id", Type: "uuid", PartitionKey: true},
				{Name: "created", Type: "timeuuid", ClusteringKey: true, Order: "desc"},
				{Name: "email", Type: "text", Index: true},
			},
		}}}

		specs, err := m.TableSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 1)

		spec := specs[0]
		assert.Equal(t, schema.DefaultReadRepairChance, spec.ReadRepairChance)

		require.Len(t, spec.Columns, 3)
		assert.True(t, spec.Columns[0].PartitionKey)
		assert.True(t, spec.Columns[0].PrimaryKey)
		assert.True(t, spec.Columns[1].PrimaryKey)
		assert.False(t, spec.Columns[1].PartitionKey)
		assert.Equal(t, schema.OrderDesc, spec.Columns[1].ClusteringOrder)
		assert.True(t, spec.Columns[2].Indexed)
	})

	t.Run("explicit read repair chance", func(t *testing.T) {
		chance := 0.25
		m := &Manifest{Tables: []TableDef{{
			Keyspace:         "app",
			Name:             "users",
			ReadRepairChance: &chance,
			Columns: []ColumnDef{
				{Name: "id", Type: "uuid", PartitionKey: true},
			},
		}}}

		specs, err := m.TableSpecs()
		require.NoError(t, err)
		assert.Equal(t, 0.25, specs[0].ReadRepairChance)
	})

	t.Run("invalid order token is rejected", func(t *testing.T) {
		m := &Manifest{Tables: []TableDef{{
			Keyspace: "app",
			Name:     "users",
			Columns: []ColumnDef{
				{Name: "id", Type: "uuid", PartitionKey: true},
				{Name: "created", Type: "timeuuid", ClusteringKey: true, Order: "SIDEWAYS"},
			},
		}}}

		_, err := m.TableSpecs()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid order")
	})

	t.Run("table without partition key is rejected", func(t *testing.T) {
		m := &Manifest{Tables: []TableDef{{
			Keyspace: "app",
			Name:     "users",
			Columns: []ColumnDef{
				{Name: "id", Type: "uuid"},
			},
		}}}

		_, err := m.TableSpecs()
		assert.Error(t, err)
	})

	t.Run("duplicate column names are rejected", func(t *testing.T) {
		m := &Manifest{Tables: []TableDef{{
			Keyspace: "app",
			Name:     "users",
			Columns: []ColumnDef{
				{Name: "id", Type: "uuid", PartitionKey: true},
				{Name: "id", Type: "text"},
			},
		}}}

		_, err := m.TableSpecs()
		assert.Error(t, err)
	})
}

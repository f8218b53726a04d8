// Package manifest loads declarative schema definitions from YAML files
// and converts them into the static specs the synchronizer consumes.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/axonops/cqlsync/internal/schema"
)

// Manifest is the top-level schema definition file
type Manifest struct {
	Keyspaces []KeyspaceDef `yaml:"keyspaces"`
	Tables    []TableDef    `yaml:"tables"`
}

// KeyspaceDef declares a keyspace
type KeyspaceDef struct {
	Name               string                 `yaml:"name"`
	StrategyClass      string                 `yaml:"strategy_class"`
	ReplicationFactor  int                    `yaml:"replication_factor"`
	DurableWrites      *bool                  `yaml:"durable_writes"`
	ReplicationOptions map[string]interface{} `yaml:"replication_options"`
}

// TableDef declares a table
type TableDef struct {
	Keyspace         string      `yaml:"keyspace"`
	Name             string      `yaml:"name"`
	ReadRepairChance *float64    `yaml:"read_repair_chance"`
	Columns          []ColumnDef `yaml:"columns"`
}

// ColumnDef declares one column. Partition and clustering flags imply
// primary-key membership.
type ColumnDef struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	PartitionKey  bool   `yaml:"partition_key"`
	ClusteringKey bool   `yaml:"clustering_key"`
	Index         bool   `yaml:"index"`
	Order         string `yaml:"order"` // ASC or DESC, clustering keys only
}

// Load reads and parses a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - Manifest path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if len(m.Keyspaces) == 0 && len(m.Tables) == 0 {
		return nil, fmt.Errorf("manifest %s declares no keyspaces or tables", path)
	}

	return &m, nil
}

// KeyspaceSpecs converts the keyspace declarations, filling defaults
func (m *Manifest) KeyspaceSpecs() ([]schema.KeyspaceSpec, error) {
	specs := make([]schema.KeyspaceSpec, 0, len(m.Keyspaces))
	for _, def := range m.Keyspaces {
		spec := schema.NewKeyspaceSpec(def.Name)
		if def.StrategyClass != "" {
			spec.StrategyClass = def.StrategyClass
		}
		if def.ReplicationFactor > 0 {
			spec.ReplicationFactor = def.ReplicationFactor
		}
		if def.DurableWrites != nil {
			spec.DurableWrites = *def.DurableWrites
		}
		spec.ReplicationOptions = def.ReplicationOptions

		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// TableSpecs converts the table declarations, filling defaults and
// validating each spec before any DDL synthesis
func (m *Manifest) TableSpecs() ([]*schema.TableSpec, error) {
	specs := make([]*schema.TableSpec, 0, len(m.Tables))
	for _, def := range m.Tables {
		spec := &schema.TableSpec{
			Keyspace:         def.Keyspace,
			Name:             def.Name,
			ReadRepairChance: schema.DefaultReadRepairChance,
		}
		if def.ReadRepairChance != nil {
			spec.ReadRepairChance = *def.ReadRepairChance
		}

		for _, col := range def.Columns {
			colSpec := schema.ColumnSpec{
				Name:         col.Name,
				Type:         col.Type,
				PartitionKey: col.PartitionKey,
				PrimaryKey:   col.PartitionKey || col.ClusteringKey,
				Indexed:      col.Index,
			}
			switch strings.ToUpper(col.Order) {
			case "":
			case "ASC":
				colSpec.ClusteringOrder = schema.OrderAsc
			case "DESC":
				colSpec.ClusteringOrder = schema.OrderDesc
			default:
				return nil, fmt.Errorf("column %q of table %s.%s has invalid order %q (want ASC or DESC)",
					col.Name, def.Keyspace, def.Name, col.Order)
			}
			spec.Columns = append(spec.Columns, colSpec)
		}

		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

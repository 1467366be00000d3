package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
connections:
  - id: sql-db
    name: Orders DB
    connectorId: sql
    actions:
      - id: sql-start
        name: Periodic SQL invocation
        pattern: From
        descriptor:
          outputDataShape:
            kind: json-instance
          propertyDefinitionSteps:
            - name: Query
              properties:
                query:
                  type: string
                  displayName: SQL statement
                  required: true
                schedulerExpression:
                  type: integer
                  displayName: Period
                  defaultValue: "1000"
      - id: sql-plain
  - id: timer
`

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	connections := catalog.Connections()
	require.Len(t, connections, 2)
	assert.Equal(t, "Orders DB", connections[0].Name)
	require.Len(t, connections[0].Actions, 2)

	descriptor := connections[0].Actions[0].Descriptor
	require.NotNil(t, descriptor)
	assert.Equal(t, "json-instance", descriptor.OutputDataShape.Kind)
	assert.True(t, descriptor.PropertyDefinitionSteps[0].Properties["query"].Required)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("connections: [\n"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("connections:\n  - name: no id\n"))
	require.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, catalog.Connections(), 2)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCatalog_Descriptor(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	descriptor, err := catalog.Descriptor("sql-db", "sql-start", map[string]any{
		"query":               "SELECT 1",
		"schedulerExpression": 500,
	})
	require.NoError(t, err)

	properties := descriptor.PropertyDefinitionSteps[0].Properties
	assert.Equal(t, "SELECT 1", properties["query"].Value)
	assert.Equal(t, "500", properties["schedulerExpression"].Value)
	assert.Equal(t, "SELECT 1", descriptor.ConfiguredProperties["query"])

	original, _ := catalog.Connections()[0].Action("sql-start")
	assert.Empty(t, original.Descriptor.PropertyDefinitionSteps[0].Properties["query"].Value)
	assert.Nil(t, original.Descriptor.ConfiguredProperties)
}

func TestCatalog_DescriptorPartialConfiguration(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	descriptor, err := catalog.Descriptor("sql-db", "sql-start", map[string]any{"schedulerExpression": "60"})
	require.NoError(t, err)
	assert.Empty(t, descriptor.PropertyDefinitionSteps[0].Properties["query"].Value)
}

func TestCatalog_DescriptorWithoutDefinition(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	descriptor, err := catalog.Descriptor("sql-db", "sql-plain", map[string]any{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, descriptor.ConfiguredProperties)
}

func TestCatalog_DescriptorErrors(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	_, err = catalog.Descriptor("nope", "sql-start", nil)
	require.ErrorIs(t, err, ErrConnectionNotFound)
	assert.True(t, IsNotFoundError(err))

	_, err = catalog.Descriptor("timer", "sql-start", nil)
	require.ErrorIs(t, err, ErrActionNotFound)

	_, err = catalog.Descriptor("sql-db", "sql-start", map[string]any{"schedulerExpression": "soon"})
	require.ErrorIs(t, err, ErrInvalidProperties)
	assert.True(t, IsValidationError(err))
}

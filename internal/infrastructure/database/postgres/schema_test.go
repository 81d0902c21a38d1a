package postgres

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initMigration = "../../../../migrations/0001_init.sql"

func columnType(t *testing.T, schema, table, column string) string {
	t.Helper()
	tableRe := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`)
	m := tableRe.FindStringSubmatch(schema)
	require.NotNil(t, m, "table %s not found", table)

	colRe := regexp.MustCompile(`(?m)^\s*` + column + `\s+([A-Z]+(?:\(\s*\d+(?:,\s*\d+)?\))?)`)
	c := colRe.FindStringSubmatch(m[1])
	require.NotNil(t, c, "column %s.%s not found", table, column)
	return regexp.MustCompile(`\s+`).ReplaceAllString(c[1], "")
}

func TestSchemaMoneyPrecision(t *testing.T) {
	raw, err := os.ReadFile(initMigration)
	require.NoError(t, err)
	schema := string(raw)

	assert.Equal(t, "NUMERIC(12,2)", columnType(t, schema, "customers", "credit_ceiling"))
	assert.Equal(t, "NUMERIC(12,2)", columnType(t, schema, "loans", "amount"))
	// Allocations carry 10 fractional digits, so the balance they reduce must too.
	assert.Equal(t, "NUMERIC(22,10)", columnType(t, schema, "loans", "outstanding"))
	assert.Equal(t, "NUMERIC(20,10)", columnType(t, schema, "payments", "total_amount"))
	assert.Equal(t, "NUMERIC(20,10)", columnType(t, schema, "payment_allocations", "amount"))
}

func TestSchemaTextLimits(t *testing.T) {
	raw, err := os.ReadFile(initMigration)
	require.NoError(t, err)
	schema := string(raw)

	for _, table := range []string{"customers", "loans", "payments"} {
		assert.Equal(t, "VARCHAR(60)", columnType(t, schema, table, "external_id"), table)
	}
	assert.Equal(t, "VARCHAR(30)", columnType(t, schema, "loans", "contract_version"))
}

func TestSchemaExternalIDsAreUnique(t *testing.T) {
	raw, err := os.ReadFile(initMigration)
	require.NoError(t, err)
	schema := string(raw)

	for _, table := range []string{"customers", "loans", "payments"} {
		assert.Contains(t, schema, "CONSTRAINT "+table+"_external_id_key UNIQUE (external_id)", table)
	}
}

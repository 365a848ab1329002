package testutil

import (
	"database/sql"
	"testing"

	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSQLSplitsStatements(t *testing.T) {
	var got []string
	exec := func(q string, _ ...any) (sql.Result, error) {
		got = append(got, q)
		return nil, nil
	}

	script := "-- header\nCREATE TABLE a (id INT); -- trailing\n\nCREATE INDEX i ON a (id);\n"
	require.NoError(t, executeSQL(exec, script))
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "CREATE TABLE a")
	assert.NotContains(t, got[0], "header")
	assert.Contains(t, got[1], "CREATE INDEX i")
}

func TestGetDBInitEnvMap(t *testing.T) {
	t.Setenv("DB_ROOT_PASSWORD", "root")

	pg := getDBInitEnvMap(&config.Config{DBType: "postgres", DBAppDatabase: "linkz"})
	assert.Equal(t, "linkz", pg["POSTGRES_DB"])

	my := getDBInitEnvMap(&config.Config{DBType: "mysql", DBAppDatabase: "linkz"})
	assert.Equal(t, "root", my["MYSQL_ROOT_PASSWORD"])
	assert.Equal(t, "linkz", my["MYSQL_DATABASE"])
}

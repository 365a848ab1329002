package data

import (
	_ "embed"
)

//go:embed initdb/postgres/001-ddl-profiles.sql
var InitdbPostgresProfiles string

//go:embed initdb/mysql/001-ddl-profiles.sql
var InitdbMySQLProfiles string

// InitdbProfiles returns the profiles DDL for a DB_TYPE, or "" when the
// dialect relies on auto-migration alone.
func InitdbProfiles(dbType string) string {
	switch dbType {
	case "postgres", "postgresql":
		return InitdbPostgresProfiles
	case "mysql", "mariadb":
		return InitdbMySQLProfiles
	}
	return ""
}

// db.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/linkz-bio/internal/database"
	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test.
// The pool holds one connection so every statement sees the same database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "migrate test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// SeedProfile inserts a profile and returns it
func SeedProfile(t *testing.T, db *gorm.DB, p models.Profile) models.Profile {
	t.Helper()
	require.NoError(t, db.Create(&p).Error, "seed profile %s", p.Username)
	return p
}

// LoadProfile reads a profile by username
func LoadProfile(t *testing.T, db *gorm.DB, username string) models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.Where("username = ?", username).Take(&p).Error, "load profile %s", username)
	return p
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

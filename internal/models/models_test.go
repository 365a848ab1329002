package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProfileBeforeCreateAssignsID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Profile{}))

	p := Profile{Username: "afton"}
	require.NoError(t, db.Create(&p).Error)
	assert.Len(t, p.ID, 36)
	assert.False(t, p.Owned())

	var loaded Profile
	require.NoError(t, db.First(&loaded, "username = ?", "afton").Error)
	assert.True(t, loaded.Settings.IsNull())
	assert.True(t, loaded.Links.IsNull())
	assert.Equal(t, uint64(0), loaded.Views)
}

func TestJSONRoundTrip(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Profile{}))

	owner := "user-1"
	p := Profile{
		Username: "settings.test",
		OwnerID:  &owner,
		Settings: NewJSON([]byte(`{"tilt_strength":12}`)),
	}
	require.NoError(t, db.Create(&p).Error)

	var loaded Profile
	require.NoError(t, db.First(&loaded, "id = ?", p.ID).Error)
	assert.JSONEq(t, `{"tilt_strength":12}`, string(loaded.Settings.JSON))
	assert.True(t, loaded.Owned())
}

func TestNewJSONEmpty(t *testing.T) {
	assert.True(t, NewJSON(nil).IsNull())
	assert.True(t, NewJSON([]byte("null")).IsNull())
	assert.False(t, NewJSON([]byte("[]")).IsNull())
}

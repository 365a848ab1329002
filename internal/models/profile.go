// profile.go
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

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the per-username customization record
type Profile struct {
	ID               string  `gorm:"primaryKey;size:36"`
	Username         string  `gorm:"size:30;not null;uniqueIndex"`
	OwnerID          *string `gorm:"size:255;index"`
	FullName         *string `gorm:"size:255"`
	Description      *string `gorm:"type:text"`
	AvatarURL        *string `gorm:"type:text"`
	BackgroundColor  *string `gorm:"size:64"`
	Theme            *string `gorm:"size:64"`
	MusicURL         *string `gorm:"type:text"`
	Links            JSON
	Settings         JSON
	IsPremium        bool    `gorm:"not null;default:false"`
	StripeCustomerID *string `gorm:"size:255;index"`
	Views            uint64  `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns a UUID primary key
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Owned reports whether the profile has been claimed
func (p *Profile) Owned() bool {
	return p.OwnerID != nil && *p.OwnerID != ""
}

// Column names used by partial updates
const (
	ColumnUsername         = "username"
	ColumnOwnerID          = "owner_id"
	ColumnFullName         = "full_name"
	ColumnDescription      = "description"
	ColumnAvatarURL        = "avatar_url"
	ColumnBackgroundColor  = "background_color"
	ColumnTheme            = "theme"
	ColumnMusicURL         = "music_url"
	ColumnLinks            = "links"
	ColumnSettings         = "settings"
	ColumnIsPremium        = "is_premium"
	ColumnStripeCustomerID = "stripe_customer_id"
	ColumnViews            = "views"
	ColumnCreatedAt        = "created_at"
	ColumnUpdatedAt        = "updated_at"
)

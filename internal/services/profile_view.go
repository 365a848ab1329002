// profile_view.go
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

package services

import (
	"encoding/json"
	"time"

	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/types"
)

// ProfileView is the public projection of a profile
type ProfileView struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	OwnerID         *string         `json:"owner_id"`
	FullName        *string         `json:"full_name"`
	Description     *string         `json:"description"`
	AvatarURL       *string         `json:"avatar_url"`
	BackgroundColor *string         `json:"background_color"`
	Theme           *string         `json:"theme"`
	Links           []types.Link    `json:"links"`
	MusicURL        *string         `json:"music_url"`
	Views           uint64          `json:"views"`
	Settings        json.RawMessage `json:"settings" swaggertype:"object"`
	IsPremium       bool            `json:"is_premium"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewProfileView projects a stored profile, normalizing links and resolving
// the effective music URL.
func NewProfileView(p *models.Profile) ProfileView {
	view := ProfileView{
		ID:              p.ID,
		Username:        p.Username,
		OwnerID:         p.OwnerID,
		FullName:        p.FullName,
		Description:     p.Description,
		AvatarURL:       p.AvatarURL,
		BackgroundColor: p.BackgroundColor,
		Theme:           p.Theme,
		Links:           NormalizeLinks(p.Links.JSON),
		MusicURL:        ResolveMusicURL(p.MusicURL, p.Settings.JSON),
		Views:           p.Views,
		IsPremium:       p.IsPremium,
		UpdatedAt:       p.UpdatedAt,
	}
	if !p.Settings.IsNull() {
		view.Settings = json.RawMessage(p.Settings.JSON)
	}
	return view
}

// NormalizeLinks decodes stored links in either the array or the legacy
// object form. Anything unreadable yields an empty list.
func NormalizeLinks(raw []byte) []types.Link {
	var links types.LinkList
	if len(raw) == 0 {
		return links.Slice()
	}
	if err := json.Unmarshal(raw, &links); err != nil {
		return types.LinkList(nil).Slice()
	}
	return links.Slice()
}

// ResolveMusicURL returns the column value when set, else the first string
// found under settings.music_url, settings.music.url, settings.musicUrl or
// settings.default_music_url.
func ResolveMusicURL(musicURL *string, settings []byte) *string {
	if musicURL != nil && *musicURL != "" {
		return musicURL
	}
	if len(settings) == 0 {
		return nil
	}

	var s map[string]json.RawMessage
	if err := json.Unmarshal(settings, &s); err != nil {
		return nil
	}

	if v, ok := jsonString(s["music_url"]); ok {
		return &v
	}
	if raw, ok := s["music"]; ok {
		var music map[string]json.RawMessage
		if json.Unmarshal(raw, &music) == nil {
			if v, ok := jsonString(music["url"]); ok {
				return &v
			}
		}
	}
	if v, ok := jsonString(s["musicUrl"]); ok {
		return &v
	}
	if v, ok := jsonString(s["default_music_url"]); ok {
		return &v
	}
	return nil
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

// profile_service.go
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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MaxCardLinks is the most settings.card_links items a profile may carry
const MaxCardLinks = 4

// fields a client may never set
var protectedFields = map[string]struct{}{
	"id":                          {},
	models.ColumnUsername:         {},
	models.ColumnOwnerID:          {},
	models.ColumnIsPremium:        {},
	models.ColumnStripeCustomerID: {},
	models.ColumnCreatedAt:        {},
	models.ColumnUpdatedAt:        {},
}

// UpsertResult is the outcome of a profile write
type UpsertResult struct {
	Data    ProfileView `json:"data"`
	Ignored []string    `json:"ignored"`
}

// ProfileService reads and writes profiles
type ProfileService struct {
	db    *gorm.DB
	gate  *EntitlementGate
	cache ProfileCache
	log   *zap.Logger
}

// NewProfileService creates a ProfileService
func NewProfileService(db *gorm.DB, gate *EntitlementGate, cache ProfileCache, log *zap.Logger) *ProfileService {
	if gate == nil {
		gate = NewEntitlementGate(nil)
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &ProfileService{db: db, gate: gate, cache: cache, log: log}
}

// Get returns the public projection of a profile
func (s *ProfileService) Get(ctx context.Context, username string) (*ProfileView, error) {
	username = NormalizeUsername(username)
	if !ValidUsername(username) {
		return nil, types.NewError(types.KindNotFound, "profile", "Profile not found")
	}

	if data, ok := s.cache.Get(ctx, username); ok {
		var view ProfileView
		if err := json.Unmarshal(data, &view); err == nil {
			return &view, nil
		}
	}

	generation := s.cache.Generation(ctx, username)

	var profile models.Profile
	err := byUsername(s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)}), username).
		Take(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.KindNotFound, "profile", "Profile not found")
		}
		return nil, types.WrapError(types.KindPersistence, "profile", err)
	}

	view := NewProfileView(&profile)
	if data, err := json.Marshal(view); err == nil {
		s.cache.Set(ctx, username, data, generation)
	}
	return &view, nil
}

// Upsert applies a partial profile document on behalf of caller. The first
// caller to write an unowned username becomes its owner.
func (s *ProfileService) Upsert(ctx context.Context, caller *Caller, username string, body map[string]json.RawMessage) (*UpsertResult, error) {
	if caller == nil || caller.ID == "" {
		return nil, types.NewError(types.KindUnauthenticated, "auth", "Missing auth token")
	}

	username = NormalizeUsername(username)
	if !ValidUsername(username) {
		return nil, types.NewError(types.KindInvalidInput, "username", "invalid username")
	}

	changes, err := decodeChanges(body)
	if err != nil {
		return nil, err
	}

	// Classify media before the row lock is taken
	avatarPremium := false
	if changes.avatarSet && changes.avatar != nil {
		avatarPremium = s.gate.PremiumMedia(ctx, *changes.avatar)
	}

	var (
		record models.Profile
		auth   AuthContext
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(models.ColumnUsername+" = ?", username).
			Take(&record).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return types.WrapError(types.KindPersistence, "profile", findErr)
		}

		auth = s.authorize(caller, &record, findErr == nil)
		if auth.EffectiveOwner() != caller.ID {
			return types.NewError(types.KindForbidden, "auth", "Forbidden")
		}

		if err := s.apply(auth, &record, changes, avatarPremium); err != nil {
			return err
		}

		owner := auth.EffectiveOwner()
		record.OwnerID = &owner
		if !auth.Exists {
			record.Username = username
			return tx.Create(&record).Error
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		if types.KindOf(err) != "" {
			return nil, err
		}
		return nil, types.WrapError(types.KindPersistence, "profile", err).WithCode(http.StatusBadRequest)
	}

	sort.Strings(changes.ignored)
	s.cache.Invalidate(ctx, username)
	s.log.Info("profile saved",
		zap.String("username", username),
		zap.String("owner_id", auth.EffectiveOwner()),
		zap.Bool("created", !auth.Exists),
		zap.Strings("ignored", changes.ignored))

	return &UpsertResult{
		Data:    NewProfileView(&record),
		Ignored: changes.ignored,
	}, nil
}

// authorize resolves the authorization context of a write once per request
func (s *ProfileService) authorize(caller *Caller, existing *models.Profile, exists bool) AuthContext {
	auth := AuthContext{CallerID: caller.ID, Exists: exists}
	if exists {
		if existing.Owned() {
			auth.ExistingOwner = *existing.OwnerID
		}
		auth.IsPremium = existing.IsPremium
	}
	return auth
}

// apply merges decoded changes into record, filtering premium features for
// non-premium profiles. Dropped keys are appended to changes.ignored.
func (s *ProfileService) apply(auth AuthContext, record *models.Profile, changes *profileChanges, avatarPremium bool) error {
	for column, value := range changes.text {
		switch column {
		case models.ColumnFullName:
			record.FullName = value
		case models.ColumnDescription:
			record.Description = value
		case models.ColumnBackgroundColor:
			record.BackgroundColor = value
		case models.ColumnTheme:
			record.Theme = value
		case models.ColumnMusicURL:
			record.MusicURL = value
		}
	}

	if changes.avatarSet {
		if s.gate.AllowMedia(auth, avatarPremium) {
			record.AvatarURL = changes.avatar
		} else {
			changes.ignore(models.ColumnAvatarURL)
		}
	}

	if changes.linksSet {
		record.Links = changes.links
	}

	if changes.viewsSet {
		record.Views = changes.views
	}

	if changes.settingsSet {
		if changes.settings == nil {
			record.Settings = models.JSON{}
		} else {
			filtered := make(map[string]json.RawMessage, len(changes.settings))
			for _, key := range sortedKeys(changes.settings) {
				if !s.gate.AllowSetting(auth, key) {
					changes.ignore("settings." + key)
					continue
				}
				filtered[key] = changes.settings[key]
			}
			encoded, err := json.Marshal(filtered)
			if err != nil {
				return types.WrapError(types.KindInvalidInput, "settings", err)
			}
			record.Settings = models.NewJSON(encoded)
		}
	}

	return nil
}

// IncrementViews atomically adds one view and returns the new count
func (s *ProfileService) IncrementViews(ctx context.Context, username string) (uint64, error) {
	username = NormalizeUsername(username)
	if !ValidUsername(username) {
		return 0, types.NewError(types.KindNotFound, "profile", "Profile not found")
	}

	var views uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where(models.ColumnUsername+" = ?", username).
			UpdateColumn(models.ColumnViews, gorm.Expr(models.ColumnViews+" + ?", 1))
		if res.Error != nil {
			return types.WrapError(types.KindPersistence, "profile", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.NewError(types.KindNotFound, "profile", "Profile not found")
		}
		var counted models.Profile
		if err := tx.Select(models.ColumnViews).
			Where(models.ColumnUsername+" = ?", username).
			Take(&counted).Error; err != nil {
			return err
		}
		views = counted.Views
		return nil
	})
	if err != nil {
		if types.KindOf(err) != "" {
			return 0, err
		}
		return 0, types.WrapError(types.KindPersistence, "profile", err)
	}
	return views, nil
}

// profileChanges is a validated PUT body
type profileChanges struct {
	text map[string]*string

	avatarSet bool
	avatar    *string

	linksSet bool
	links    models.JSON

	settingsSet bool
	settings    map[string]json.RawMessage

	viewsSet bool
	views    uint64

	ignored []string
}

func (c *profileChanges) ignore(key string) {
	c.ignored = append(c.ignored, key)
}

var textColumns = map[string]struct{}{
	models.ColumnFullName:        {},
	models.ColumnDescription:     {},
	models.ColumnBackgroundColor: {},
	models.ColumnTheme:           {},
	models.ColumnMusicURL:        {},
}

// decodeChanges validates the body shape. Protected and unknown keys are
// recorded as ignored.
func decodeChanges(body map[string]json.RawMessage) (*profileChanges, error) {
	changes := &profileChanges{
		text:    map[string]*string{},
		ignored: []string{},
	}

	for _, key := range sortedKeys(body) {
		raw := body[key]

		if _, ok := protectedFields[key]; ok {
			changes.ignore(key)
			continue
		}

		if _, ok := textColumns[key]; ok {
			value, err := nullableString(key, raw)
			if err != nil {
				return nil, err
			}
			changes.text[key] = value
			continue
		}

		switch key {
		case models.ColumnAvatarURL:
			value, err := nullableString(key, raw)
			if err != nil {
				return nil, err
			}
			changes.avatarSet, changes.avatar = true, value

		case models.ColumnLinks:
			changes.linksSet = true
			if isNull(raw) {
				continue
			}
			var links types.LinkList
			if err := json.Unmarshal(raw, &links); err != nil {
				return nil, types.NewError(types.KindInvalidInput, "links", "links must be an array or an object")
			}
			encoded, err := json.Marshal(links.Slice())
			if err != nil {
				return nil, types.WrapError(types.KindInvalidInput, "links", err)
			}
			changes.links = models.NewJSON(encoded)

		case models.ColumnSettings:
			changes.settingsSet = true
			if isNull(raw) {
				continue
			}
			settings, err := decodeSettings(raw)
			if err != nil {
				return nil, err
			}
			changes.settings = settings

		case models.ColumnViews:
			if isNull(raw) {
				continue
			}
			var views types.FlexCount
			if err := json.Unmarshal(raw, &views); err != nil {
				return nil, types.NewError(types.KindInvalidInput, "views", "views must be a non-negative integer")
			}
			changes.viewsSet, changes.views = true, views.Uint64()

		default:
			changes.ignore(key)
		}
	}

	return changes, nil
}

func decodeSettings(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, types.NewError(types.KindInvalidInput, "settings", "settings must be an object")
	}

	var settings map[string]json.RawMessage
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, types.NewError(types.KindInvalidInput, "settings", "settings must be an object")
	}

	if cards, ok := settings["card_links"]; ok && !isNull(cards) {
		var items []json.RawMessage
		if err := json.Unmarshal(cards, &items); err != nil {
			return nil, types.NewError(types.KindInvalidInput, "settings", "card_links must be an array")
		}
		if len(items) > MaxCardLinks {
			return nil, types.NewError(types.KindInvalidInput, "settings",
				fmt.Sprintf("card_links allows at most %d items", MaxCardLinks))
		}
	}

	return settings, nil
}

func nullableString(key string, raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, types.NewError(types.KindInvalidInput, key, key+" must be a string or null")
	}
	return &value, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

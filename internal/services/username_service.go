// username_service.go
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
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,30}$`)

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether a normalized username matches the allowed pattern
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// byUsername scopes a query to one username with a tagged statement.
func byUsername(db *gorm.DB, username string) *gorm.DB {
	return db.Clauses(hints.CommentBefore("select", "profile_by_username")).
		Where(models.ColumnUsername+" = ?", username)
}

// UsernameService claims usernames and answers availability queries
type UsernameService struct {
	db    *gorm.DB
	cache ProfileCache
	log   *zap.Logger
}

// NewUsernameService creates a UsernameService
func NewUsernameService(db *gorm.DB, cache ProfileCache, log *zap.Logger) *UsernameService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &UsernameService{db: db, cache: cache, log: log}
}

// Available reports whether username can still be claimed. Invalid
// usernames are unavailable and never reach the store.
func (s *UsernameService) Available(ctx context.Context, username string) (bool, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return false, types.NewError(types.KindInvalidInput, "username", "missing username")
	}
	if !ValidUsername(username) {
		return false, nil
	}

	var count int64
	err := byUsername(s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)}), username).
		Model(&models.Profile{}).
		Count(&count).Error
	if err != nil {
		return false, types.WrapError(types.KindPersistence, "username", err)
	}
	return count == 0, nil
}

// Claim binds username to the caller. A caller holds at most one profile, so
// an existing profile of the caller is renamed; otherwise one is created.
func (s *UsernameService) Claim(ctx context.Context, caller *Caller, userID, username string) (*ProfileView, error) {
	if caller == nil || caller.ID == "" {
		return nil, types.NewError(types.KindUnauthenticated, "auth", "Missing auth token")
	}
	if userID == "" {
		userID = caller.ID
	}
	if userID != caller.ID {
		return nil, types.NewError(types.KindForbidden, "auth", "Forbidden")
	}

	username = NormalizeUsername(username)
	if username == "" {
		return nil, types.NewError(types.KindInvalidInput, "username", "missing userId or username")
	}
	if !ValidUsername(username) {
		return nil, types.NewError(types.KindInvalidInput, "username", "invalid username")
	}

	var (
		claimed  models.Profile
		previous string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Session(&gorm.Session{})

		var holder models.Profile
		holderErr := byUsername(locked, username).Take(&holder).Error
		if holderErr != nil && !errors.Is(holderErr, gorm.ErrRecordNotFound) {
			return types.WrapError(types.KindPersistence, "username", holderErr)
		}
		held := holderErr == nil

		var own models.Profile
		ownErr := locked.Where(models.ColumnOwnerID+" = ?", userID).
			Order(models.ColumnCreatedAt).
			First(&own).Error
		if ownErr != nil && !errors.Is(ownErr, gorm.ErrRecordNotFound) {
			return types.WrapError(types.KindPersistence, "username", ownErr)
		}
		hasOwn := ownErr == nil

		switch {
		case held && holder.Owned() && *holder.OwnerID != userID:
			return types.NewError(types.KindInvalidInput, "username", "username is already taken")

		case held && (holder.Owned() || !hasOwn):
			// Already ours, or an unowned record the caller adopts
			holder.OwnerID = &userID
			claimed = holder
			return tx.Save(&claimed).Error

		case held:
			return types.NewError(types.KindInvalidInput, "username", "username is already taken")

		case hasOwn:
			previous = own.Username
			own.Username = username
			claimed = own
			return tx.Save(&claimed).Error
		}

		claimed = models.Profile{Username: username, OwnerID: &userID}
		return tx.Create(&claimed).Error
	})
	if err != nil {
		if types.KindOf(err) != "" {
			return nil, err
		}
		return nil, types.WrapError(types.KindPersistence, "username", err).WithCode(400)
	}

	s.cache.Invalidate(ctx, previous, username)
	s.log.Info("username claimed",
		zap.String("owner_id", userID),
		zap.String("username", username),
		zap.String("previous", previous))

	view := NewProfileView(&claimed)
	return &view, nil
}

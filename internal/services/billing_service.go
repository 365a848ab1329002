// billing_service.go
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
	"net/http"

	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Checkout metadata keys
const (
	MetadataUserID   = "userId"
	MetadataUsername = "username"
)

// BillingService starts checkouts and applies payment webhooks
type BillingService struct {
	db       *gorm.DB
	provider PaymentProvider
	priceID  string
	cache    ProfileCache
	log      *zap.Logger
}

// NewBillingService creates a BillingService
func NewBillingService(db *gorm.DB, provider PaymentProvider, priceID string, cache ProfileCache, log *zap.Logger) *BillingService {
	if cache == nil {
		cache = NoopCache{}
	}
	return &BillingService{db: db, provider: provider, priceID: priceID, cache: cache, log: log}
}

// StartCheckout creates a checkout session for the caller's profile and
// returns its URL. origin is where the payment page returns to.
func (s *BillingService) StartCheckout(ctx context.Context, caller *Caller, username, origin string) (string, error) {
	if caller == nil || caller.ID == "" {
		return "", types.NewError(types.KindUnauthenticated, "auth", "Missing auth token")
	}

	username = NormalizeUsername(username)

	var profile models.Profile
	query := s.db.WithContext(ctx)
	if username != "" {
		query = byUsername(query, username)
	} else {
		query = query.Where(models.ColumnOwnerID+" = ?", caller.ID).Order(models.ColumnCreatedAt)
	}
	if err := query.First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", types.NewError(types.KindNotFound, "profile", "Profile not found")
		}
		return "", types.WrapError(types.KindPersistence, "profile", err)
	}
	if !profile.Owned() || *profile.OwnerID != caller.ID {
		return "", types.NewError(types.KindForbidden, "auth", "Forbidden")
	}

	if s.priceID == "" {
		return "", types.NewError(types.KindConfiguration, "billing", "Missing STRIPE_PRICE_ID")
	}
	if s.provider == nil {
		return "", types.WrapError(types.KindConfiguration, "billing", ErrPaymentsNotConfigured)
	}

	metadata := map[string]string{
		MetadataUserID:   caller.ID,
		MetadataUsername: profile.Username,
	}

	customerID := ""
	if profile.StripeCustomerID != nil {
		customerID = *profile.StripeCustomerID
	}
	if customerID == "" {
		id, err := s.provider.CreateCustomer(ctx, caller.Email, metadata)
		if err != nil {
			return "", s.upstream(err)
		}
		customerID = id
		err = s.db.WithContext(ctx).Model(&profile).
			Update(models.ColumnStripeCustomerID, customerID).Error
		if err != nil {
			return "", types.WrapError(types.KindPersistence, "profile", err)
		}
		s.log.Info("payment customer created",
			zap.String("username", profile.Username),
			zap.String("customer_id", customerID))
	}

	url, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.priceID,
		SuccessURL: origin + "?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "?checkout=cancel",
		Metadata:   metadata,
	})
	if err != nil {
		return "", s.upstream(err)
	}
	return url, nil
}

func (s *BillingService) upstream(err error) error {
	if errors.Is(err, ErrPaymentsNotConfigured) {
		return types.WrapError(types.KindConfiguration, "billing", err)
	}
	s.log.Error("payment provider call failed", zap.Error(err))
	return types.WrapError(types.KindUpstream, "billing", err)
}

// HandleWebhook verifies and applies a payment webhook. A completed
// checkout grants premium by owner, falling back to the username.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return types.WrapError(types.KindConfiguration, "billing", ErrPaymentsNotConfigured)
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return types.NewError(types.KindInvalidInput, "webhook",
			"Webhook signature verification failed: "+err.Error())
	}

	if event.Type != EventCheckoutCompleted {
		s.log.Debug("webhook event acknowledged", zap.String("type", event.Type), zap.String("id", event.ID))
		return nil
	}

	userID := event.Metadata[MetadataUserID]
	username := NormalizeUsername(event.Metadata[MetadataUsername])
	if userID == "" && username == "" {
		s.log.Warn("checkout completed without profile reference", zap.String("id", event.ID))
		return nil
	}

	var customer *string
	if event.CustomerID != "" {
		customer = &event.CustomerID
	}

	var granted []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if userID != "" {
			usernames, err := grantPremium(tx, models.ColumnOwnerID, userID, customer)
			if err != nil {
				return err
			}
			granted = usernames
		}
		if len(granted) == 0 && username != "" {
			usernames, err := grantPremium(tx, models.ColumnUsername, username, customer)
			if err != nil {
				return err
			}
			granted = usernames
		}
		return nil
	})
	if err != nil {
		return types.WrapError(types.KindPersistence, "webhook", err).WithCode(http.StatusInternalServerError)
	}

	s.cache.Invalidate(ctx, granted...)
	s.log.Info("premium granted",
		zap.String("event_id", event.ID),
		zap.String("owner_id", userID),
		zap.Strings("usernames", granted))
	return nil
}

// grantPremium flags every profile matching column = value and returns their
// usernames.
func grantPremium(tx *gorm.DB, column, value string, customer *string) ([]string, error) {
	var usernames []string
	if err := tx.Model(&models.Profile{}).
		Where(column+" = ?", value).
		Pluck(models.ColumnUsername, &usernames).Error; err != nil {
		return nil, err
	}
	if len(usernames) == 0 {
		return nil, nil
	}

	err := tx.Model(&models.Profile{}).
		Where(column+" = ?", value).
		Updates(map[string]interface{}{
			models.ColumnIsPremium:        true,
			models.ColumnStripeCustomerID: customer,
		}).Error
	if err != nil {
		return nil, err
	}
	return usernames, nil
}

// billing.go
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

package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/services"
	"github.com/localnerve/linkz-bio/internal/utils"
)

// BillingHandler handles Stripe checkout and webhook routes
type BillingHandler struct {
	Billing       *services.BillingService
	PublicBaseURL string
}

// CheckoutRequest is the optional checkout request body
type CheckoutRequest struct {
	Username string `json:"username"`
}

// Checkout handles POST /api/stripe/checkout
// @Summary Start a premium checkout
// @Description Creates a Stripe checkout session for the caller's profile, selected by username or by owner
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckoutRequest false "Profile to upgrade"
// @Success 200 {object} utils.CheckoutResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /stripe/checkout [post]
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	// The body is optional; anything unreadable selects by owner.
	_ = json.Unmarshal(c.Body(), &req)

	url, err := h.Billing.StartCheckout(c.UserContext(), middleware.CallerFrom(c), req.Username, h.origin(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, utils.CheckoutResponse{URL: url}, fiber.StatusOK)
}

// origin picks the checkout return address
func (h *BillingHandler) origin(c *fiber.Ctx) string {
	if origin := c.Get(fiber.HeaderOrigin); origin != "" {
		return origin
	}
	if h.PublicBaseURL != "" {
		return strings.TrimSuffix(h.PublicBaseURL, "/")
	}
	return c.BaseURL()
}

// Webhook handles POST /api/stripe/webhook
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header and grants premium on checkout.session.completed
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} utils.WebhookResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /stripe/webhook [post]
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	if err := h.Billing.HandleWebhook(c.UserContext(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		return err
	}
	return utils.SuccessResponse(c, utils.WebhookResponse{Received: true}, fiber.StatusOK)
}

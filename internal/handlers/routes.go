// routes.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/services"
)

// Routes holds everything the API routes depend on
type Routes struct {
	Authenticator services.Authenticator
	RateLimiter   *middleware.IPRateLimiter
	Profiles      *ProfileHandler
	Usernames     *UsernameHandler
	Billing       *BillingHandler
	Health        *HealthHandler
}

// Register mounts the API under /api
func (r *Routes) Register(app *fiber.App) {
	api := app.Group("/api")
	auth := middleware.BearerAuth(r.Authenticator)

	api.Get("/health", r.Health.Health)

	profiles := api.Group("/profiles")
	profiles.Get("/:username", r.Profiles.GetProfile)
	profiles.Put("/:username", middleware.JSONObjectBody(), auth, r.Profiles.UpsertProfile)
	profiles.Post("/:username/views", r.Profiles.IncrementViews)

	api.Post("/set-username", auth, r.Usernames.SetUsername)
	if r.RateLimiter != nil {
		api.Get("/username-available", middleware.RateLimit(r.RateLimiter), r.Usernames.Available)
	} else {
		api.Get("/username-available", r.Usernames.Available)
	}

	stripe := api.Group("/stripe")
	stripe.Post("/checkout", auth, r.Billing.Checkout)
	stripe.Post("/webhook", r.Billing.Webhook)
}

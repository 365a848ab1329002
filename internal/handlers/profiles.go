// profiles.go
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

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/services"
	"github.com/localnerve/linkz-bio/internal/types"
	"github.com/localnerve/linkz-bio/internal/utils"
)

// ProfileHandler handles profile routes
type ProfileHandler struct {
	Profiles *services.ProfileService
}

// GetProfile handles GET /api/profiles/:username
// @Summary Get a profile
// @Description Public projection of a profile with normalized links and resolved music URL
// @Tags Profiles
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} services.ProfileView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /profiles/{username} [get]
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	view, err := h.Profiles.Get(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusOK)
}

// UpsertProfile handles PUT /api/profiles/:username
// @Summary Create or update a profile
// @Description Fields present in the body replace stored values. The first writer of an unowned username becomes its owner. Premium-only settings and media are dropped for non-premium profiles and reported in ignored.
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param body body object true "Profile fields"
// @Success 200 {object} services.UpsertResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /profiles/{username} [put]
func (h *ProfileHandler) UpsertProfile(c *fiber.Ctx) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
		return types.NewError(types.KindInvalidInput, "body", "Invalid body")
	}

	result, err := h.Profiles.Upsert(c.UserContext(), middleware.CallerFrom(c), c.Params("username"), body)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// IncrementViews handles POST /api/profiles/:username/views
// @Summary Count a profile view
// @Tags Profiles
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} utils.ViewsResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /profiles/{username}/views [post]
func (h *ProfileHandler) IncrementViews(c *fiber.Ctx) error {
	views, err := h.Profiles.IncrementViews(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, utils.ViewsResponse{Views: views}, fiber.StatusOK)
}

// usernames.go
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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/services"
	"github.com/localnerve/linkz-bio/internal/types"
	"github.com/localnerve/linkz-bio/internal/utils"
)

// UsernameHandler handles username claim and availability routes
type UsernameHandler struct {
	Usernames *services.UsernameService
}

// SetUsernameRequest is the claim request body
type SetUsernameRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// SetUsername handles POST /api/set-username
// @Summary Claim a username
// @Description Binds a username to the caller, renaming the caller's existing profile if any
// @Tags Usernames
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetUsernameRequest true "Claim"
// @Success 200 {object} utils.ClaimResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /set-username [post]
func (h *UsernameHandler) SetUsername(c *fiber.Ctx) error {
	var req SetUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return types.NewError(types.KindInvalidInput, "body", "Invalid body")
	}

	profile, err := h.Usernames.Claim(c.UserContext(), middleware.CallerFrom(c), req.UserID, req.Username)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, utils.ClaimResponse{Ok: true, Profile: profile}, fiber.StatusOK)
}

// Available handles GET /api/username-available
// @Summary Check username availability
// @Tags Usernames
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} utils.AvailabilityResponse
// @Failure 400 {object} utils.AvailabilityResponse
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.AvailabilityResponse
// @Router /username-available [get]
func (h *UsernameHandler) Available(c *fiber.Ctx) error {
	available, err := h.Usernames.Available(c.UserContext(), c.Query("username"))
	if err != nil {
		status := fiber.StatusInternalServerError
		if types.KindOf(err) == types.KindInvalidInput {
			status = fiber.StatusBadRequest
		}
		message := err.Error()
		var customErr *types.CustomError
		if errors.As(err, &customErr) {
			message = customErr.Message
		}
		return utils.SuccessResponse(c, utils.AvailabilityResponse{Available: false, Error: message}, status)
	}
	return utils.SuccessResponse(c, utils.AvailabilityResponse{Available: available}, fiber.StatusOK)
}

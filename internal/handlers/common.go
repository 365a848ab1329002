// common.go
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
	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/localnerve/linkz-bio/internal/types"
	"github.com/localnerve/linkz-bio/internal/utils"
	"go.uber.org/zap"
)

// ErrorHandler converts handler errors into the standard error envelope
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()
		errorType := "unknown"

		var customErr *types.CustomError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &customErr):
			code = customErr.Code
			message = customErr.Message
			errorType = customErr.Type
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Int("status", code),
				zap.Error(err))
		}

		return utils.ErrorResponse(c, message, code, errorType)
	}
}

// AppConfig builds the fiber configuration. Proxy headers are honored only
// from TRUSTED_PROXIES peers.
func AppConfig(cfg *config.Config, log *zap.Logger) fiber.Config {
	appCfg := fiber.Config{
		ErrorHandler:          ErrorHandler(log),
		DisableStartupMessage: !cfg.LogDev,
	}
	if len(cfg.TrustedProxies) > 0 {
		appCfg.EnableTrustedProxyCheck = true
		appCfg.TrustedProxies = cfg.TrustedProxies
		appCfg.ProxyHeader = fiber.HeaderXForwardedFor
		appCfg.EnableIPValidation = true
	}
	return appCfg
}

// NotFound is the catch-all handler for unmatched routes
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}

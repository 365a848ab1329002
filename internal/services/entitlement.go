// entitlement.go
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
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// PremiumSettingsKeys are the settings keys only premium profiles may persist
var PremiumSettingsKeys = []string{
	"card_glass",
	"music_card_glass",
	"glow_enabled",
	"glow_color",
	"glow_size",
	"glow_title",
	"glow_description",
	"glow_music",
	"glow_cards",
	"glow_icons",
	"mouse_particles",
	"mouse_particles_color",
	"mouse_particles_count",
	"mouse_particles_size",
	"mouse_particles_life",
	"page_background_image",
}

var premiumSettings = func() map[string]struct{} {
	m := make(map[string]struct{}, len(PremiumSettingsKeys))
	for _, k := range PremiumSettingsKeys {
		m[k] = struct{}{}
	}
	return m
}()

// IsPremiumSettingKey reports whether key is reserved for premium profiles
func IsPremiumSettingKey(key string) bool {
	_, ok := premiumSettings[key]
	return ok
}

var premiumExtensions = map[string]struct{}{
	".gif":  {},
	".mp4":  {},
	".webm": {},
	".mov":  {},
	".m4v":  {},
	".ogv":  {},
}

// IsPremiumMIME reports whether a media type is animated GIF or video
func IsPremiumMIME(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt == "image/gif" || strings.HasPrefix(mt, "video/")
}

// AuthContext is the authorization state of one write request, resolved once
// and handed to every entitlement decision.
type AuthContext struct {
	CallerID      string
	ExistingOwner string
	IsPremium     bool
	Exists        bool
}

// EffectiveOwner is the owner the record has after the write
func (a AuthContext) EffectiveOwner() string {
	if a.ExistingOwner != "" {
		return a.ExistingOwner
	}
	return a.CallerID
}

// MediaInspector classifies media URLs
type MediaInspector interface {
	IsPremiumMedia(ctx context.Context, mediaURL string) bool
}

// ExtensionInspector classifies by data URI media type or file extension
type ExtensionInspector struct{}

// IsPremiumMedia implements MediaInspector
func (ExtensionInspector) IsPremiumMedia(_ context.Context, mediaURL string) bool {
	premium, _ := classifyByName(mediaURL)
	return premium
}

// classifyByName reports the premium decision and whether the name alone
// was enough to make it.
func classifyByName(mediaURL string) (premium bool, known bool) {
	s := strings.TrimSpace(mediaURL)
	if s == "" {
		return false, true
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "data:") {
		header, _, _ := strings.Cut(lower[len("data:"):], ",")
		mediaType, _, _ := strings.Cut(header, ";")
		return IsPremiumMIME(mediaType), true
	}

	p := lower
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		p = strings.ToLower(u.Path)
	}
	ext := path.Ext(p)
	if ext == "" {
		return false, false
	}
	_, premium = premiumExtensions[ext]
	return premium, true
}

// HTTPMediaInspector falls back to a HEAD request for URLs whose name does
// not identify the media type, reading the Content-Type.
type HTTPMediaInspector struct {
	client  *fasthttp.Client
	timeout time.Duration
	log     *zap.Logger
}

// NewHTTPMediaInspector creates an HTTPMediaInspector
func NewHTTPMediaInspector(timeout time.Duration, log *zap.Logger) *HTTPMediaInspector {
	return &HTTPMediaInspector{
		client: &fasthttp.Client{
			Name:                "linkz-bio-media-probe",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnWaitTimeout:  timeout,
			MaxResponseBodySize: 1,
		},
		timeout: timeout,
		log:     log,
	}
}

// IsPremiumMedia implements MediaInspector
func (i *HTTPMediaInspector) IsPremiumMedia(ctx context.Context, mediaURL string) bool {
	if premium, known := classifyByName(mediaURL); known {
		return premium
	}

	u, err := url.Parse(mediaURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(mediaURL)
	req.Header.SetMethod(fasthttp.MethodHead)
	resp.SkipBody = true

	timeout := i.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := i.client.DoTimeout(req, resp, timeout); err != nil {
		i.log.Debug("media probe failed", zap.String("url", mediaURL), zap.Error(err))
		return false
	}
	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		return false
	}

	return IsPremiumMIME(string(resp.Header.ContentType()))
}

// EntitlementGate decides which premium features a write may carry
type EntitlementGate struct {
	inspector MediaInspector
}

// NewEntitlementGate creates an EntitlementGate. A nil inspector classifies
// by name only.
func NewEntitlementGate(inspector MediaInspector) *EntitlementGate {
	if inspector == nil {
		inspector = ExtensionInspector{}
	}
	return &EntitlementGate{inspector: inspector}
}

// AllowSetting reports whether the settings key may be persisted
func (g *EntitlementGate) AllowSetting(auth AuthContext, key string) bool {
	return auth.IsPremium || !IsPremiumSettingKey(key)
}

// PremiumMedia classifies mediaURL. It may block on a network probe, so
// callers resolve it before taking row locks.
func (g *EntitlementGate) PremiumMedia(ctx context.Context, mediaURL string) bool {
	return g.inspector.IsPremiumMedia(ctx, mediaURL)
}

// AllowMedia reports whether media classified by PremiumMedia may be persisted
func (g *EntitlementGate) AllowMedia(auth AuthContext, premiumMedia bool) bool {
	return auth.IsPremium || !premiumMedia
}

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/localnerve/linkz-bio/internal/middleware"
	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/services"
	"github.com/localnerve/linkz-bio/internal/testutil"
	"github.com/localnerve/linkz-bio/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_handlers_test"

type profileEnvelope struct {
	Data    services.ProfileView `json:"data"`
	Ignored []string             `json:"ignored"`
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	gate := services.NewEntitlementGate(services.ExtensionInspector{})

	routes := &Routes{
		Authenticator: services.NewJWTAuthenticator(testutil.JWTSecret, "", ""),
		RateLimiter:   middleware.NewIPRateLimiter(0.001, 3, log),
		Profiles:      &ProfileHandler{Profiles: services.NewProfileService(db, gate, nil, log)},
		Usernames:     &UsernameHandler{Usernames: services.NewUsernameService(db, nil, log)},
		Billing: &BillingHandler{
			Billing:       services.NewBillingService(db, services.NewStripeProvider("", webhookSecret), "price_test", nil, log),
			PublicBaseURL: "https://linkz.bio/",
		},
		Health: &HealthHandler{
			Config: &config.Config{DBType: "sqlite", AuthMode: config.AuthModeJWT},
			DB:     db,
			Log:    log,
		},
	}

	app := fiber.New(AppConfig(&config.Config{}, log))
	routes.Register(app)
	app.Use(NotFound)
	return app, db
}

func request(t *testing.T, app *fiber.App, method, target, body, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, testutil.BearerHeader(token))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestProfileLifecycle(t *testing.T) {
	app, _ := setupApp(t)
	owner := testutil.MintToken(t, "owner-1", "owner@example.com")

	resp := request(t, app, http.MethodGet, "/api/profiles/ada", "", "")
	testutil.AssertStatus(t, resp, http.StatusNotFound)

	resp = request(t, app, http.MethodPut, "/api/profiles/ada",
		`{"full_name": "Ada", "links": [{"platform": "site", "url": "https://ada.dev"}], "settings": {"glow_enabled": true, "accent": "blue"}}`, owner)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var upserted profileEnvelope
	testutil.ParseJSON(t, resp, &upserted)
	assert.Equal(t, "ada", upserted.Data.Username)
	require.NotNil(t, upserted.Data.OwnerID)
	assert.Equal(t, "owner-1", *upserted.Data.OwnerID)
	assert.Equal(t, []string{"settings.glow_enabled"}, upserted.Ignored)
	assert.JSONEq(t, `{"accent": "blue"}`, string(upserted.Data.Settings))

	resp = request(t, app, http.MethodGet, "/api/profiles/ADA", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var fetched services.ProfileView
	testutil.ParseJSON(t, resp, &fetched)
	require.NotNil(t, fetched.FullName)
	assert.Equal(t, "Ada", *fetched.FullName)
	require.Len(t, fetched.Links, 1)

	resp = request(t, app, http.MethodPost, "/api/profiles/ada/views", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var views utils.ViewsResponse
	testutil.ParseJSON(t, resp, &views)
	assert.Equal(t, uint64(1), views.Views)
}

func TestUpsertProfileErrors(t *testing.T) {
	app, _ := setupApp(t)
	owner := testutil.MintToken(t, "owner-1", "")
	other := testutil.MintToken(t, "owner-2", "")

	resp := request(t, app, http.MethodPut, "/api/profiles/grace", `{"full_name": "Grace"}`, "")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)

	resp = request(t, app, http.MethodPut, "/api/profiles/grace", `[1, 2]`, owner)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)

	resp = request(t, app, http.MethodPut, "/api/profiles/grace", `{"full_name": "Grace"}`, owner)
	testutil.AssertStatus(t, resp, http.StatusOK)

	resp = request(t, app, http.MethodPut, "/api/profiles/grace", `{"full_name": "Mallory"}`, other)
	testutil.AssertStatus(t, resp, http.StatusForbidden)
	var envelope utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &envelope)
	assert.False(t, envelope.Ok)
	assert.Equal(t, http.StatusForbidden, envelope.Status)
	assert.Equal(t, "/api/profiles/grace", envelope.URL)
	assert.NotEmpty(t, envelope.Timestamp)
}

func TestIncrementViewsNotFound(t *testing.T) {
	app, _ := setupApp(t)
	resp := request(t, app, http.MethodPost, "/api/profiles/nobody/views", "", "")
	testutil.AssertStatus(t, resp, http.StatusNotFound)
}

func TestUsernameAvailability(t *testing.T) {
	app, db := setupApp(t)
	testutil.SeedProfile(t, db, models.Profile{Username: "taken"})

	resp := request(t, app, http.MethodGet, "/api/username-available?username=taken", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var answer utils.AvailabilityResponse
	testutil.ParseJSON(t, resp, &answer)
	assert.False(t, answer.Available)

	resp = request(t, app, http.MethodGet, "/api/username-available?username=fresh", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	answer = utils.AvailabilityResponse{}
	testutil.ParseJSON(t, resp, &answer)
	assert.True(t, answer.Available)

	resp = request(t, app, http.MethodGet, "/api/username-available", "", "")
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	answer = utils.AvailabilityResponse{}
	testutil.ParseJSON(t, resp, &answer)
	assert.False(t, answer.Available)
	assert.Equal(t, "missing username", answer.Error)

	req := httptest.NewRequest(http.MethodGet, "/api/username-available?username=fresh", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.7")
	req.Header.Set(fiber.HeaderXForwardedFor, "198.51.100.7")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	testutil.AssertStatus(t, resp, http.StatusTooManyRequests)
}

func TestAppConfigTrustedProxies(t *testing.T) {
	open := AppConfig(&config.Config{}, zap.NewNop())
	assert.False(t, open.EnableTrustedProxyCheck)
	assert.Empty(t, open.ProxyHeader)

	proxied := AppConfig(&config.Config{TrustedProxies: []string{"10.0.0.0/8"}}, zap.NewNop())
	assert.True(t, proxied.EnableTrustedProxyCheck)
	assert.Equal(t, []string{"10.0.0.0/8"}, proxied.TrustedProxies)
	assert.Equal(t, fiber.HeaderXForwardedFor, proxied.ProxyHeader)
}

func TestSetUsername(t *testing.T) {
	app, db := setupApp(t)
	token := testutil.MintToken(t, "user-9", "")
	testutil.SeedProfile(t, db, models.Profile{Username: "held", OwnerID: testutil.StringPtr("someone")})

	resp := request(t, app, http.MethodPost, "/api/set-username", `{"username": "mine"}`, "")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)

	resp = request(t, app, http.MethodPost, "/api/set-username", `{"userId": "user-9", "username": "Mine"}`, token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var claim struct {
		Ok      bool                 `json:"ok"`
		Profile services.ProfileView `json:"profile"`
	}
	testutil.ParseJSON(t, resp, &claim)
	assert.True(t, claim.Ok)
	assert.Equal(t, "mine", claim.Profile.Username)

	resp = request(t, app, http.MethodPost, "/api/set-username", `{"username": "held"}`, token)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)

	resp = request(t, app, http.MethodPost, "/api/set-username", `{"userId": "user-1", "username": "other"}`, token)
	testutil.AssertStatus(t, resp, http.StatusForbidden)
}

func TestCheckoutWithoutStripeKey(t *testing.T) {
	app, db := setupApp(t)
	token := testutil.MintToken(t, "payer", "")
	testutil.SeedProfile(t, db, models.Profile{Username: "payer", OwnerID: testutil.StringPtr("payer")})

	resp := request(t, app, http.MethodPost, "/api/stripe/checkout", "", "")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)

	resp = request(t, app, http.MethodPost, "/api/stripe/checkout", `{"username": "payer"}`, token)
	testutil.AssertStatus(t, resp, http.StatusInternalServerError)
}

func TestStripeWebhook(t *testing.T) {
	app, db := setupApp(t)
	testutil.SeedProfile(t, db, models.Profile{Username: "upgrader", OwnerID: testutil.StringPtr("user-5")})

	payload := fmt.Sprintf(`{"id": "evt_h1", "object": "event", "type": "checkout.session.completed",
		"data": {"object": {"id": "cs_h1", "object": "checkout.session", "customer": "cus_h1",
		"metadata": {"userId": %q, "username": %q}}}}`, "user-5", "upgrader")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	assert.False(t, testutil.LoadProfile(t, db, "upgrader").IsPremium)

	req = httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var ack utils.WebhookResponse
	testutil.ParseJSON(t, resp, &ack)
	assert.True(t, ack.Received)
	assert.True(t, testutil.LoadProfile(t, db, "upgrader").IsPremium)

	resp = request(t, app, http.MethodGet, "/api/profiles/upgrader", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var view services.ProfileView
	testutil.ParseJSON(t, resp, &view)
	assert.True(t, view.IsPremium)
}

func TestClaimedUsernameIsProtected(t *testing.T) {
	app, _ := setupApp(t)
	owner := testutil.MintToken(t, "afton-owner", "")
	intruder := testutil.MintToken(t, "intruder", "")

	resp := request(t, app, http.MethodPost, "/api/set-username", `{"username": "Afton "}`, owner)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var claim utils.ClaimResponse
	testutil.ParseJSON(t, resp, &claim)
	assert.True(t, claim.Ok)

	resp = request(t, app, http.MethodGet, "/api/username-available?username=AFTON", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var answer utils.AvailabilityResponse
	testutil.ParseJSON(t, resp, &answer)
	assert.False(t, answer.Available)

	resp = request(t, app, http.MethodPut, "/api/profiles/AFTON", `{"full_name": "Not Afton"}`, intruder)
	testutil.AssertStatus(t, resp, http.StatusForbidden)

	resp = request(t, app, http.MethodGet, "/api/profiles/afton", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var view services.ProfileView
	testutil.ParseJSON(t, resp, &view)
	assert.Equal(t, "afton", view.Username)
	assert.Nil(t, view.FullName)
	require.NotNil(t, view.OwnerID)
	assert.Equal(t, "afton-owner", *view.OwnerID)
}

func TestHealthAndNotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp := request(t, app, http.MethodGet, "/api/health", "", "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var result services.HealthCheckResult
	testutil.ParseJSON(t, resp, &result)
	assert.True(t, result.Healthy())

	resp = request(t, app, http.MethodGet, "/api/nowhere", "", "")
	testutil.AssertStatus(t, resp, http.StatusNotFound)
}

func TestCheckoutOrigin(t *testing.T) {
	app := fiber.New()
	h := &BillingHandler{PublicBaseURL: "https://linkz.bio/"}
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(h.origin(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://app.linkz.bio")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "https://app.linkz.bio", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "https://linkz.bio", string(body))
}

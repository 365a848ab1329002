package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/linkz-bio/internal/database"
	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/services"
	"github.com/localnerve/linkz-bio/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stack struct {
	db        *gorm.DB
	cache     services.ProfileCache
	profiles  *services.ProfileService
	usernames *services.UsernameService
}

func setupStack(t *testing.T) *stack {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc, err := testutil.CreateAllTestContainers(t)
	require.NoError(t, err)
	t.Cleanup(func() { tc.Terminate(t) })

	log := zap.NewNop()
	db, err := database.Connect(tc.Config, log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	ctx := context.Background()
	rdb, err := services.NewRedisClient(ctx, tc.Config)
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	cache := services.NewRedisProfileCache(rdb, time.Minute, log)
	gate := services.NewEntitlementGate(services.ExtensionInspector{})
	return &stack{
		db:        db,
		cache:     cache,
		profiles:  services.NewProfileService(db, gate, cache, log),
		usernames: services.NewUsernameService(db, cache, log),
	}
}

func uniqueName(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func rawBody(t *testing.T, doc string) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &body))
	return body
}

func TestProfileFlow(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	owner := &services.Caller{ID: uuid.NewString(), Email: "flow@example.com"}
	name := uniqueName("flow")

	claimed, err := s.usernames.Claim(ctx, owner, "", name)
	require.NoError(t, err)
	assert.Equal(t, name, claimed.Username)

	available, err := s.usernames.Available(ctx, name)
	require.NoError(t, err)
	assert.False(t, available)

	result, err := s.profiles.Upsert(ctx, owner, name, rawBody(t, `{
		"full_name": "Flow Tester",
		"links": {"site": "https://flow.example"},
		"settings": {"accent": "teal", "card_glass": true}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"settings.card_glass"}, result.Ignored)
	require.Len(t, result.Data.Links, 1)

	fetched, err := s.profiles.Get(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, fetched.FullName)
	assert.Equal(t, "Flow Tester", *fetched.FullName)

	cached, ok := s.cache.Get(ctx, name)
	require.True(t, ok, "profile should be cached after a read")
	assert.Contains(t, string(cached), "Flow Tester")

	_, err = s.profiles.Upsert(ctx, owner, name, rawBody(t, `{"full_name": "Renamed"}`))
	require.NoError(t, err)
	_, ok = s.cache.Get(ctx, name)
	assert.False(t, ok, "write should invalidate the cached profile")

	fetched, err = s.profiles.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", *fetched.FullName)

	_, err = s.profiles.Upsert(ctx, &services.Caller{ID: uuid.NewString()}, name, rawBody(t, `{"full_name": "Hijack"}`))
	assert.Error(t, err)
}

func TestRedisCacheDropsFillsAfterInvalidation(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	name := uniqueName("gen")

	stale := s.cache.Generation(ctx, name)
	s.cache.Invalidate(ctx, name)
	s.cache.Set(ctx, name, []byte(`{"username":"stale"}`), stale)
	_, ok := s.cache.Get(ctx, name)
	assert.False(t, ok, "fill from before the invalidation must be dropped")

	current := s.cache.Generation(ctx, name)
	assert.Greater(t, current, stale)
	s.cache.Set(ctx, name, []byte(`{"username":"fresh"}`), current)
	data, ok := s.cache.Get(ctx, name)
	require.True(t, ok)
	assert.JSONEq(t, `{"username":"fresh"}`, string(data))
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	name := uniqueName("race")

	const contenders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := &services.Caller{ID: fmt.Sprintf("racer-%d-%s", i, name)}
			if _, err := s.usernames.Claim(ctx, caller, "", name); err == nil {
				mu.Lock()
				winners = append(winners, caller.ID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	var profile models.Profile
	require.NoError(t, s.db.Where(models.ColumnUsername+" = ?", name).Take(&profile).Error)
	assert.Equal(t, winners[0], *profile.OwnerID)
}

func TestConcurrentViewIncrements(t *testing.T) {
	s := setupStack(t)
	ctx := context.Background()
	name := uniqueName("views")
	testutil.SeedProfile(t, s.db, models.Profile{Username: name})

	const hits = 25
	var wg sync.WaitGroup
	for i := 0; i < hits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.profiles.IncrementViews(ctx, name)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(hits), testutil.LoadProfile(t, s.db, name).Views)
}

package services

import (
	"testing"

	"github.com/localnerve/linkz-bio/internal/models"
	"github.com/localnerve/linkz-bio/internal/testutil"
	"github.com/localnerve/linkz-bio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLinks(t *testing.T) {
	assert.Equal(t, []types.Link{}, NormalizeLinks(nil))
	assert.Equal(t, []types.Link{}, NormalizeLinks([]byte("null")))
	assert.Equal(t, []types.Link{}, NormalizeLinks([]byte(`"oops"`)))

	assert.Equal(t,
		[]types.Link{{Platform: "x", URL: "https://x.com/a"}},
		NormalizeLinks([]byte(`[{"platform":"x","url":"https://x.com/a"}]`)))

	assert.Equal(t,
		[]types.Link{
			{Platform: "youtube", URL: "https://youtube.com/@a"},
			{Platform: "github", URL: "https://github.com/a"},
		},
		NormalizeLinks([]byte(`{"youtube":"https://youtube.com/@a","github":"https://github.com/a"}`)))
}

func TestResolveMusicURL(t *testing.T) {
	column := "https://music.example/column.mp3"
	empty := ""

	cases := []struct {
		name     string
		column   *string
		settings string
		want     string
	}{
		{"column wins", &column, `{"music_url":"https://music.example/s.mp3"}`, column},
		{"empty column falls back", &empty, `{"music_url":"https://music.example/s.mp3"}`, "https://music.example/s.mp3"},
		{"settings.music_url", nil, `{"music_url":"a"}`, "a"},
		{"settings.music.url", nil, `{"music":{"url":"b"}}`, "b"},
		{"settings.musicUrl", nil, `{"musicUrl":"c"}`, "c"},
		{"settings.default_music_url", nil, `{"default_music_url":"d"}`, "d"},
		{"order", nil, `{"default_music_url":"d","musicUrl":"c","music":{"url":"b"}}`, "b"},
		{"non-string skipped", nil, `{"music_url":5,"musicUrl":"c"}`, "c"},
	}

	for _, tc := range cases {
		got := ResolveMusicURL(tc.column, []byte(tc.settings))
		require.NotNil(t, got, tc.name)
		assert.Equal(t, tc.want, *got, tc.name)
	}

	assert.Nil(t, ResolveMusicURL(nil, nil))
	assert.Nil(t, ResolveMusicURL(nil, []byte(`{"theme":"dark"}`)))
	assert.Nil(t, ResolveMusicURL(nil, []byte(`[1,2]`)))
}

func TestNewProfileView(t *testing.T) {
	owner := "user-1"
	p := &models.Profile{
		ID:       "id-1",
		Username: "afton",
		OwnerID:  &owner,
		FullName: testutil.StringPtr("Afton"),
		Links:    models.NewJSON([]byte(`{"x":"https://x.com/afton"}`)),
		Settings: models.NewJSON([]byte(`{"musicUrl":"https://m.example/a.mp3"}`)),
		Views:    7,
	}

	view := NewProfileView(p)
	assert.Equal(t, "afton", view.Username)
	assert.Equal(t, []types.Link{{Platform: "x", URL: "https://x.com/afton"}}, view.Links)
	require.NotNil(t, view.MusicURL)
	assert.Equal(t, "https://m.example/a.mp3", *view.MusicURL)
	assert.JSONEq(t, `{"musicUrl":"https://m.example/a.mp3"}`, string(view.Settings))
	assert.Equal(t, uint64(7), view.Views)

	bare := NewProfileView(&models.Profile{Username: "bare"})
	assert.Nil(t, bare.Settings)
	assert.Equal(t, []types.Link{}, bare.Links)
	assert.Nil(t, bare.MusicURL)
}

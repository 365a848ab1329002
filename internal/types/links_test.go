package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkListArray(t *testing.T) {
	var links LinkList
	require.NoError(t, json.Unmarshal([]byte(`[{"platform":"github","url":"https://github.com/x"}]`), &links))
	assert.Equal(t, LinkList{{Platform: "github", URL: "https://github.com/x"}}, links)
}

func TestLinkListLegacyObjectKeepsOrder(t *testing.T) {
	var links LinkList
	require.NoError(t, json.Unmarshal([]byte(`{"twitter":"https://x.com/a","discord":"https://discord.gg/b","count":3}`), &links))
	assert.Equal(t, LinkList{
		{Platform: "twitter", URL: "https://x.com/a"},
		{Platform: "discord", URL: "https://discord.gg/b"},
		{Platform: "count", URL: "3"},
	}, links)
}

func TestLinkListNull(t *testing.T) {
	links := LinkList{{Platform: "a", URL: "b"}}
	require.NoError(t, json.Unmarshal([]byte(`null`), &links))
	assert.Nil(t, links)
	assert.Equal(t, []Link{}, links.Slice())
}

func TestLinkListRejectsScalars(t *testing.T) {
	var links LinkList
	assert.Error(t, json.Unmarshal([]byte(`"github"`), &links))
}

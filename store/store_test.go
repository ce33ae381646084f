package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapKeepsKeyOrder(t *testing.T) {
	var m OrderedMap[int]
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":2,"mid":3}`), &m))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())

	m.Set("alpha", 20)
	m.Set("new", 4)
	assert.True(t, m.Delete("zeta"))
	assert.False(t, m.Delete("zeta"))

	out, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":20,"mid":3,"new":4}`, string(out))
}

func TestOrderedMapNil(t *testing.T) {
	var m *OrderedMap[string]
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Keys())
	_, ok := m.Get("x")
	assert.False(t, ok)

	var decoded OrderedMap[string]
	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.Zero(t, decoded.Len())

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &decoded))
}

func TestOrderedMapDoesNotEscapeMarkup(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("body", "<p>a & b</p>")
	out, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"body":"<p>a & b</p>"}`, string(out))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "Markdown": FormatMarkdown, " html ": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, FormatMarkdown, StoryDocument{Format: "weird"}.ContentFormat())
}

func TestTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.FixedZone("KST", 9*3600))
	s := Timestamp(ts)
	assert.Equal(t, "2024-03-01T00:30:00.123456Z", s)

	parsed, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	legacy, err := ParseTimestamp("2024-03-01T00:30:00.5")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, legacy.Location())

	_, err = ParseTimestamp("yesterday")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	in := `{"stories":{"s":{"title":"T","markdown":"<b>m</b>","byline":"kim","visuals":{"v":{"renderer":"r","note":1}}}},"schema":2}`
	var agg Aggregate
	require.NoError(t, json.Unmarshal([]byte(in), &agg))

	doc, ok := agg.Stories.Get("s")
	require.True(t, ok)
	assert.Equal(t, "T", doc.Title)
	require.NotNil(t, doc.Extra)
	assert.Equal(t, []string{"byline"}, doc.Extra.Keys())

	out, err := json.Marshal(agg)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestJoinExtra(t *testing.T) {
	extra := NewOrderedMap[json.RawMessage]()
	extra.Set("a", json.RawMessage(`1`))
	extra.Set("title", json.RawMessage(`"ignored"`))

	out, err := JoinExtra([]byte(`{"title":"T"}`), extra)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"T","a":1}`, string(out))

	out, err = JoinExtra([]byte(`{}`), extra)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"title":"ignored"}`, string(out))

	out, err = JoinExtra([]byte(`{"x":0}`), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"x":0}`, string(out))

	none, err := SplitExtra([]byte(`{"title":"T"}`), "title")
	require.NoError(t, err)
	assert.Nil(t, none)
}

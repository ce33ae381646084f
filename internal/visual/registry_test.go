package visual

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"datastory/internal/chart"
	"datastory/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okRenderer(_ context.Context, _, _ string) (*chart.Figure, error) {
	return &chart.Figure{Data: []chart.Trace{{Type: "bar"}}}, nil
}

func TestRenderIsolatesFailures(t *testing.T) {
	reg := NewRegistry(map[string]RendererFunc{
		"boom": func(context.Context, string, string) (*chart.Figure, error) {
			panic("sheet exploded")
		},
		"fails": func(context.Context, string, string) (*chart.Figure, error) {
			return nil, errors.New("missing workbook")
		},
		"empty": func(context.Context, string, string) (*chart.Figure, error) {
			return nil, nil
		},
		"ok": okRenderer,
	})
	ctx := context.Background()

	fig, err := reg.Render(ctx, "boom", "story", "slot-1")
	assert.Nil(t, fig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet exploded")

	// sibling slot in the same pass still renders
	fig, err = reg.Render(ctx, "ok", "story", "slot-2")
	require.NoError(t, err)
	assert.NotNil(t, fig)

	_, err = reg.Render(ctx, "fails", "story", "slot-3")
	assert.EqualError(t, err, "missing workbook")

	_, err = reg.Render(ctx, "empty", "story", "slot-4")
	assert.ErrorIs(t, err, ErrNoChart)

	_, err = reg.Render(ctx, "ghost", "story", "slot-5")
	assert.ErrorIs(t, err, ErrRendererNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistryIsACopy(t *testing.T) {
	src := map[string]RendererFunc{"ok": okRenderer}
	reg := NewRegistry(src)
	src["later"] = okRenderer

	_, ok := reg.Resolve("later")
	assert.False(t, ok)
	assert.Equal(t, []string{"ok"}, reg.Names())
}

type fakeSlots map[string]store.VisualSlot

func (f fakeSlots) GetSlot(_ context.Context, slug, slot string) (store.VisualSlot, error) {
	s, ok := f[slug+"/"+slot]
	if !ok {
		return store.VisualSlot{}, store.ErrNotFound
	}
	return s, nil
}

type fakeTables struct{ tbl *chart.Table }

func (f fakeTables) TableFromMeta(chart.Meta) (*chart.Table, error) { return f.tbl, nil }

func TestDeclarativeRenderer(t *testing.T) {
	slots := fakeSlots{
		"covid/slot-1": {Chart: json.RawMessage(`{"chart_type":"line","x":"year","y":["v"],"workbook":"w.xlsx","sheet":"s"}`)},
		"covid/slot-2": {Renderer: DeclarativeRenderer},
	}
	tables := fakeTables{tbl: chart.NewTable([]string{"year", "v"}, [][]any{{2020.0, 1.0}})}
	reg := NewRegistry(Builtins(slots, tables))
	ctx := context.Background()

	fig, err := reg.Render(ctx, DeclarativeRenderer, "covid", "slot-1")
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)

	_, err = reg.Render(ctx, DeclarativeRenderer, "covid", "slot-2")
	assert.ErrorContains(t, err, "no chart metadata")

	_, err = reg.Render(ctx, DeclarativeRenderer, "covid", "slot-9")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeclarativePrefersContextSlots(t *testing.T) {
	tables := fakeTables{tbl: chart.NewTable([]string{"year", "v"}, [][]any{{2020.0, 1.0}})}
	reg := NewRegistry(Builtins(fakeSlots{}, tables))

	draft := store.NewOrderedMap[store.VisualSlot]()
	draft.Set("slot-1", store.VisualSlot{Chart: json.RawMessage(`{"chart_type":"bar","x":"year","y":"v","workbook":"w","sheet":"s"}`)})
	ctx := WithSlots(context.Background(), draft)

	fig, err := reg.Render(ctx, DeclarativeRenderer, "unsaved", "slot-1")
	require.NoError(t, err)
	assert.Equal(t, "bar", fig.Data[0].Type)
}

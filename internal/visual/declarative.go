package visual

import (
	"context"
	"fmt"

	"datastory/internal/chart"
	"datastory/store"
)

// DeclarativeRenderer is the built-in renderer driven by a slot's chart metadata.
const DeclarativeRenderer = "declarative"

type SlotSource interface {
	GetSlot(ctx context.Context, storySlug, slotID string) (store.VisualSlot, error)
}

type TableSource interface {
	TableFromMeta(meta chart.Meta) (*chart.Table, error)
}

type slotsKey struct{}

// WithSlots returns a context whose slots take precedence over the stored ones.
// The editor preview uses it to render unsaved chart metadata.
func WithSlots(ctx context.Context, slots *store.OrderedMap[store.VisualSlot]) context.Context {
	return context.WithValue(ctx, slotsKey{}, slots)
}

func lookupSlot(ctx context.Context, slots SlotSource, storySlug, slotID string) (store.VisualSlot, error) {
	if override, ok := ctx.Value(slotsKey{}).(*store.OrderedMap[store.VisualSlot]); ok {
		if slot, found := override.Get(slotID); found {
			return slot, nil
		}
	}
	return slots.GetSlot(ctx, storySlug, slotID)
}

// Declarative reads the slot's chart metadata, loads the referenced sheet and
// builds the chart through the transform pipeline.
func Declarative(slots SlotSource, tables TableSource) RendererFunc {
	return func(ctx context.Context, storySlug, slotID string) (*chart.Figure, error) {
		slot, err := lookupSlot(ctx, slots, storySlug, slotID)
		if err != nil {
			return nil, err
		}
		if len(slot.Chart) == 0 {
			return nil, fmt.Errorf("slot %q has no chart metadata", slotID)
		}
		meta, err := chart.ParseMeta(slot.Chart)
		if err != nil {
			return nil, err
		}
		tbl, err := tables.TableFromMeta(meta)
		if err != nil {
			return nil, err
		}
		return chart.Build(tbl, meta)
	}
}

// Builtins returns the renderers that ship with the service.
func Builtins(slots SlotSource, tables TableSource) map[string]RendererFunc {
	return map[string]RendererFunc{
		DeclarativeRenderer: Declarative(slots, tables),
	}
}

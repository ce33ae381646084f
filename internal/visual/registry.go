package visual

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"datastory/internal/chart"
)

var (
	ErrRendererNotFound = errors.New("renderer not found")
	ErrNoChart          = errors.New("renderer returned no chart")
)

// RendererFunc builds the chart for one slot of one story.
type RendererFunc func(ctx context.Context, storySlug, slotID string) (*chart.Figure, error)

// Registry is the name -> renderer table. It is built once at startup and never
// mutated afterwards, so it can be shared freely between the viewer and the editor.
type Registry struct {
	renderers map[string]RendererFunc
}

func NewRegistry(renderers map[string]RendererFunc) *Registry {
	table := make(map[string]RendererFunc, len(renderers))
	for name, fn := range renderers {
		if fn != nil {
			table[name] = fn
		}
	}
	return &Registry{renderers: table}
}

func (r *Registry) Resolve(name string) (RendererFunc, bool) {
	fn, ok := r.renderers[strings.TrimSpace(name)]
	return fn, ok
}

// Names returns the registered renderer names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render runs the named renderer for a slot. A lookup miss, a returned error, a
// panic and a nil chart all come back as errors so that one broken slot never
// takes the rest of the page down.
func (r *Registry) Render(ctx context.Context, name, storySlug, slotID string) (fig *chart.Figure, err error) {
	fn, ok := r.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRendererNotFound, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			fig, err = nil, fmt.Errorf("renderer %q failed: %v", name, rec)
		}
	}()

	fig, err = fn(ctx, storySlug, slotID)
	if err != nil {
		return nil, err
	}
	if fig == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoChart, name)
	}
	return fig, nil
}

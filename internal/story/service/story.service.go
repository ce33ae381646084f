package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"datastory/internal/render"
	"datastory/internal/story/model"
	"datastory/internal/story/repository"
	"datastory/internal/visual"
	"datastory/pkg/logger"
	"datastory/socket"
	"datastory/store"
)

const (
	defaultChartHeight = 480
	newStoryTitle      = "New story"
)

type StoryService struct {
	Repo     *repository.StoryRepository
	Registry *visual.Registry
	Engine   *render.Engine
	Hub      *socket.Hub
}

func NewStoryService(repo *repository.StoryRepository, registry *visual.Registry, engine *render.Engine, hub *socket.Hub) *StoryService {
	return &StoryService{Repo: repo, Registry: registry, Engine: engine, Hub: hub}
}

func (s *StoryService) ListStories(ctx context.Context) ([]model.StorySummary, error) {
	return s.Repo.List(ctx)
}

func (s *StoryService) GetStory(ctx context.Context, slug string) (*model.StoryResponse, error) {
	doc, err := s.Repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &model.StoryResponse{Slug: slug, StoryDocument: *doc}, nil
}

func (s *StoryService) SuggestSlug(ctx context.Context, title string) (string, error) {
	return s.Repo.EnsureUniqueSlug(ctx, title)
}

// CreateStory adds an empty story under a fresh slug derived from title.
func (s *StoryService) CreateStory(ctx context.Context, title string) (*model.StoryResponse, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = newStoryTitle
	}
	slug, err := s.Repo.EnsureUniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}
	doc, err := s.Repo.Save(ctx, slug, store.StoryDocument{
		Title:   title,
		Format:  store.FormatMarkdown,
		Visuals: store.NewOrderedMap[store.VisualSlot](),
	})
	if err != nil {
		return nil, err
	}
	return &model.StoryResponse{Slug: slug, StoryDocument: *doc}, nil
}

// SaveStory validates payload, replaces the stored story and tells open editors.
func (s *StoryService) SaveStory(ctx context.Context, userID, slug string, payload store.StoryDocument) (*store.StoryDocument, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		return nil, fmt.Errorf("%w: title is required", store.ErrInvalidInput)
	}
	format, err := store.ParseFormat(string(payload.Format))
	if err != nil {
		return nil, err
	}
	payload.Format = format

	saved, err := s.Repo.Save(ctx, slug, payload)
	if err != nil {
		return nil, err
	}

	if s.Hub != nil {
		body, _ := json.Marshal(map[string]string{"updated_at": saved.UpdatedAt, "title": saved.Title})
		s.Hub.Broadcast <- socket.WSMessage{
			Type:    socket.SavedType,
			Slug:    slug,
			UserID:  userID,
			Payload: body,
		}
	}
	return saved, nil
}

func (s *StoryService) DeleteStory(ctx context.Context, slug string) error {
	if err := s.Repo.Delete(ctx, slug); err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.RemoveStory(slug)
	}
	return nil
}

// Draft returns editor state read fresh from the store. Unknown slugs get an
// empty draft so a new story can be started from the editor.
func (s *StoryService) Draft(ctx context.Context, slug string) (model.Draft, error) {
	doc, err := s.Repo.Get(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return model.DraftFromStory(slug, nil), nil
	}
	if err != nil {
		return model.Draft{}, err
	}
	return model.DraftFromStory(slug, doc), nil
}

// Preview renders an unsaved draft. Slot chart metadata from the draft wins
// over what is stored.
func (s *StoryService) Preview(ctx context.Context, slug string, draft model.Draft) (*model.RenderResponse, error) {
	doc := draft.Payload()
	if doc.Visuals != nil {
		ctx = visual.WithSlots(ctx, doc.Visuals)
	}
	return s.render(ctx, slug, doc)
}

func (s *StoryService) RenderStory(ctx context.Context, slug string) (*model.RenderResponse, error) {
	doc, err := s.Repo.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, slug, *doc)
}

func (s *StoryService) FormatSource(raw string) string {
	return render.AutoFormat(raw)
}

func (s *StoryService) Renderers() []string {
	return s.Registry.Names()
}

// render lays the story out as blocks. Every chart slot is resolved and run on
// its own; whatever goes wrong with one slot becomes a notice in its place.
func (s *StoryService) render(ctx context.Context, slug string, doc store.StoryDocument) (*model.RenderResponse, error) {
	resp := &model.RenderResponse{
		Slug:      slug,
		Title:     doc.Title,
		Source:    doc.PDFSource,
		UpdatedAt: doc.UpdatedAt,
		Blocks:    []model.Block{},
	}
	if resp.Title == "" {
		resp.Title = slug
	}

	slotIDs := doc.SlotIDs()
	body := doc.Markdown
	if len(slotIDs) > 0 && !render.HasPlaceholder(body) {
		body = render.AutoInject(body)
	}

	var onChart render.ChartFunc
	if len(slotIDs) > 0 {
		onChart = func(slotID string) bool {
			block := s.chartBlock(ctx, slug, doc, slotID)
			resp.Blocks = append(resp.Blocks, block)
			return block.Type == model.BlockChart
		}
	}
	onText := func(html string) {
		resp.Blocks = append(resp.Blocks, model.Block{Type: model.BlockText, HTML: html})
	}

	if strings.TrimSpace(doc.Markdown) != "" {
		if err := s.Engine.Render(body, doc.ContentFormat(), onText, onChart); err != nil {
			return nil, err
		}
	} else {
		resp.Blocks = append(resp.Blocks, notice("info", "No body text has been provided."))
		if onChart != nil {
			onChart("")
		}
	}

	if len(slotIDs) == 0 {
		resp.Blocks = append(resp.Blocks, notice("info", "No visualization slots have been configured yet."))
	}
	return resp, nil
}

func (s *StoryService) chartBlock(ctx context.Context, slug string, doc store.StoryDocument, slotID string) model.Block {
	target := slotID
	if target == "" {
		ids := doc.SlotIDs()
		if len(ids) == 0 {
			return notice("info", "No visualization slot is configured.")
		}
		target = ids[0]
	}

	slot, ok := doc.Visuals.Get(target)
	if !ok {
		return notice("info", fmt.Sprintf("Visualization slot %q could not be found.", target))
	}
	renderer := strings.TrimSpace(slot.Renderer)
	if renderer == "" {
		return notice("info", fmt.Sprintf("Slot %q has no renderer assigned.", target))
	}

	fig, err := s.Registry.Render(ctx, renderer, slug, target)
	if err != nil {
		logger.Sugar.Warnf("Renderer %s failed for %s/%s: %v", renderer, slug, target, err)
		return notice("warning", fmt.Sprintf("Renderer error in slot %q: %v", target, err))
	}
	if fig.Layout.Height == 0 {
		fig.Layout.Height = defaultChartHeight
	}
	if _, err := json.Marshal(fig); err != nil {
		logger.Sugar.Warnf("Renderer %s produced an unencodable figure for %s/%s: %v", renderer, slug, target, err)
		return notice("warning", fmt.Sprintf("Renderer error in slot %q: %v", target, err))
	}
	return model.Block{
		Type:    model.BlockChart,
		SlotID:  target,
		Title:   slot.Title,
		Caption: slot.Caption,
		Figure:  fig,
	}
}

func notice(level, message string) model.Block {
	return model.Block{Type: model.BlockNotice, Level: level, Message: message}
}

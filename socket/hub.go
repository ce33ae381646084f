package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"datastory/internal/story/model"
	"datastory/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	DraftType          = "DRAFT"           // Editor state; sent on join and by writers on every edit
	PreviewType        = "PREVIEW"         // Rendered blocks for the current draft
	SavedType          = "SAVED"           // The story was persisted
	DeletedType        = "DELETED"         // Close reason sent when the story is removed
	PresenceUpdateType = "PRESENCE_UPDATE" // An editor joined or left
	ErrorType          = "ERROR"           // The draft could not be processed
	AddSlotType        = "ADD_SLOT"        // Append the next free slot-<n> to the room draft
	RemoveSlotType     = "REMOVE_SLOT"     // Drop the slot named by payload.slot_id
)

type WSMessage struct {
	Type    string          `json:"type"`
	Slug    string          `json:"slug"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`

	sender *Client
}

type UserStatus struct {
	ClientID string    `json:"client_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Workspace is what the hub needs from the story service: the stored draft to
// seed a room with, and a renderer for previews.
type Workspace interface {
	Draft(ctx context.Context, slug string) (model.Draft, error)
	Preview(ctx context.Context, slug string, draft model.Draft) (*model.RenderResponse, error)
}

type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	// Workspace must be set before Run is started.
	Workspace Workspace
	// Draft state per story slug, dropped when the room empties
	Drafts   map[string]model.Draft
	mu       sync.Mutex
	Presence map[string]map[*Client]UserStatus
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	ID     string
	Slug   string
	UserID string
	Send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Drafts:     make(map[string]model.Draft),
		Presence:   make(map[string]map[*Client]UserStatus),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Slug] == nil {
				h.Rooms[client.Slug] = make(map[*Client]bool)
				h.Presence[client.Slug] = make(map[*Client]UserStatus)
			}
			draft, ok := h.Drafts[client.Slug]
			if !ok {
				// First editor in the room: seed the draft from the store.
				var err error
				draft, err = h.Workspace.Draft(context.Background(), client.Slug)
				if err != nil {
					logger.Sugar.Errorf("Failed to load draft for %s: %v", client.Slug, err)
					draft = model.DraftFromStory(client.Slug, nil)
				}
				h.Drafts[client.Slug] = draft
			}
			h.Rooms[client.Slug][client] = true
			h.Presence[client.Slug][client] = UserStatus{ClientID: client.ID, UserID: client.UserID, JoinedAt: time.Now()}
			h.mu.Unlock()

			h.sendDraftAndPreview(client, draft)
			h.broadcastPresenceUpdate(client.Slug)

		case client := <-h.Unregister:
			h.mu.Lock()
			slug := client.Slug
			roomLeft := false
			if _, ok := h.Rooms[slug][client]; ok {
				delete(h.Rooms[slug], client)
				delete(h.Presence[slug], client)
				close(client.Send)

				if len(h.Rooms[slug]) == 0 {
					delete(h.Rooms, slug)
					delete(h.Presence, slug)
					delete(h.Drafts, slug)
					logger.Sugar.Infof("Closed and cleaned up empty room: %s", slug)
				} else {
					roomLeft = true
				}
			}
			h.mu.Unlock()

			if roomLeft {
				h.broadcastPresenceUpdate(slug)
			}

		case msg := <-h.Broadcast:
			switch msg.Type {
			case DraftType:
				h.handleDraft(msg)
			case AddSlotType, RemoveSlotType:
				h.handleSlot(msg)
			default:
				h.fanOut(msg)
			}
		}
	}
}

// handleDraft stores the writer's draft as the room state, forwards it to the
// other editors and pushes a fresh preview to everyone in the room.
func (h *Hub) handleDraft(msg WSMessage) {
	var draft model.Draft
	if err := json.Unmarshal(msg.Payload, &draft); err != nil {
		logger.Sugar.Warnf("Dropping malformed draft for %s: %v", msg.Slug, err)
		h.sendTo(msg.sender, WSMessage{Type: ErrorType, Slug: msg.Slug, Payload: errorPayload("malformed draft")})
		return
	}
	draft.Slug = msg.Slug

	h.mu.Lock()
	if h.Rooms[msg.Slug] == nil {
		h.mu.Unlock()
		return
	}
	h.Drafts[msg.Slug] = draft
	h.mu.Unlock()

	h.fanOut(msg)
	h.pushPreview(msg.Slug, draft, msg.sender)
}

// handleSlot adds or removes a chart slot on the room draft, then sends the new
// draft and its preview to every editor in the room, the requester included.
func (h *Hub) handleSlot(msg WSMessage) {
	h.mu.Lock()
	draft, ok := h.Drafts[msg.Slug]
	if !ok || h.Rooms[msg.Slug] == nil {
		h.mu.Unlock()
		return
	}
	if msg.Type == AddSlotType {
		id := draft.AddSlot()
		logger.Sugar.Infof("Added slot %s to draft %s", id, msg.Slug)
	} else {
		var req struct {
			SlotID string `json:"slot_id"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil || !draft.RemoveSlot(req.SlotID) {
			h.mu.Unlock()
			h.sendTo(msg.sender, WSMessage{Type: ErrorType, Slug: msg.Slug, Payload: errorPayload("unknown slot")})
			return
		}
	}
	h.Drafts[msg.Slug] = draft
	h.mu.Unlock()

	payload, err := json.Marshal(draft)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling draft: %v", err)
		return
	}
	h.fanOut(WSMessage{Type: DraftType, Slug: msg.Slug, UserID: msg.UserID, Payload: payload})
	h.pushPreview(msg.Slug, draft, msg.sender)
}

// pushPreview renders draft and sends it to the whole room. Render failures go
// back to requester only.
func (h *Hub) pushPreview(slug string, draft model.Draft, requester *Client) {
	preview, err := h.Workspace.Preview(context.Background(), slug, draft)
	if err != nil {
		logger.Sugar.Errorf("Failed to render preview for %s: %v", slug, err)
		h.sendTo(requester, WSMessage{Type: ErrorType, Slug: slug, Payload: errorPayload(err.Error())})
		return
	}
	payload, err := json.Marshal(preview)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling preview: %v", err)
		return
	}
	h.fanOut(WSMessage{Type: PreviewType, Slug: slug, Payload: payload})
}

// fanOut sends msg to everyone in its room except the connection it came from.
func (h *Hub) fanOut(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		return
	}

	h.mu.Lock()
	clientsToSend := make([]*Client, 0, len(h.Rooms[msg.Slug]))
	for client := range h.Rooms[msg.Slug] {
		if client != msg.sender {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			// Lagging client; drop it from the hub goroutine without blocking.
			logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.ID)
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) sendTo(client *Client, msg WSMessage) {
	if client == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling message: %v", err)
		return
	}
	select {
	case client.Send <- payload:
	default:
		logger.Sugar.Warnf("Client %s's send buffer was full, dropping %s.", client.ID, msg.Type)
	}
}

func (h *Hub) sendDraftAndPreview(client *Client, draft model.Draft) {
	draftPayload, err := json.Marshal(draft)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling draft: %v", err)
		return
	}
	h.sendTo(client, WSMessage{Type: DraftType, Slug: client.Slug, Payload: draftPayload})

	preview, err := h.Workspace.Preview(context.Background(), client.Slug, draft)
	if err != nil {
		logger.Sugar.Errorf("Failed to render preview for %s: %v", client.Slug, err)
		return
	}
	previewPayload, err := json.Marshal(preview)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling preview: %v", err)
		return
	}
	h.sendTo(client, WSMessage{Type: PreviewType, Slug: client.Slug, Payload: previewPayload})
}

// RemoveStory disconnects every editor of a deleted story and forgets its draft.
func (h *Hub) RemoveStory(slug string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.Drafts, slug)
	if clients, ok := h.Rooms[slug]; ok {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, DeletedType)
		for client := range clients {
			_ = client.Conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			client.Conn.Close() // readPump exits and unregisters
		}
	}
}

func (h *Hub) broadcastPresenceUpdate(slug string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[slug]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[slug]))
		for _, status := range h.Presence[slug] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[slug]))
		for client := range h.Rooms[slug] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, Slug: slug, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.ID)
		}
	}
}

func errorPayload(message string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": message})
	return b
}

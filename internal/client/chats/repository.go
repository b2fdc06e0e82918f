// Package chats holds the in-memory chat collections rendered by the client:
// the active chats, the trash and the currently selected chat.
package chats

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/docchat/internal/models"
	"go.uber.org/zap"
)

// NewChatPreview is the preview text of a chat that has no messages yet.
const NewChatPreview = "New document"

// Repository owns the active and deleted chat collections. Chat ids are
// unique across both collections; a chat lives in at most one of them.
// All operations are total: unknown ids are ignored and reported as false.
type Repository struct {
	clock Clock
	ids   IDGenerator
	log   *zap.Logger

	mu         sync.RWMutex
	active     []models.Chat
	deleted    []models.DeletedChat
	selectedID string
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the time source used for deletion and activity timestamps.
func WithClock(c Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIDGenerator sets the generator used by NewChat and NewMessage.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithLogger sets the repository logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// New returns a repository whose active collection is seed, in order.
// Seed entries with an id already seen are skipped.
func New(seed []models.Chat, opts ...Option) *Repository {
	r := &Repository{
		clock: RealClock{},
		ids:   UUIDGenerator{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.active = r.dedupe(seed)
	return r
}

// Reset replaces both collections with seed and clears the selection.
func (r *Repository) Reset(seed []models.Chat) {
	active := r.dedupe(seed)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
	r.deleted = nil
	r.selectedID = ""
}

func (r *Repository) dedupe(seed []models.Chat) []models.Chat {
	out := make([]models.Chat, 0, len(seed))
	seen := make(map[string]struct{}, len(seed))
	for _, c := range seed {
		if _, dup := seen[c.ID]; dup {
			r.log.Warn("skipping duplicate seed chat", zap.String("chat_id", c.ID))
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c.Clone())
	}
	return out
}

// Chats returns a copy of the active collection, most recent first.
func (r *Repository) Chats() []models.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Chat, len(r.active))
	for i, c := range r.active {
		out[i] = c.Clone()
	}
	return out
}

// DeletedChats returns a copy of the trash, most recently deleted first.
func (r *Repository) DeletedChats() []models.DeletedChat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DeletedChat, len(r.deleted))
	for i, d := range r.deleted {
		out[i] = models.DeletedChat{Chat: d.Chat.Clone(), DeletedAt: d.DeletedAt}
	}
	return out
}

// Chat returns a copy of the active chat with the given id.
func (r *Repository) Chat(id string) (models.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.activeIndex(id); i >= 0 {
		return r.active[i].Clone(), true
	}
	return models.Chat{}, false
}

// SelectedChat returns the selected chat as it currently is in the active
// collection, or nil when nothing is selected.
func (r *Repository) SelectedChat() *models.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selectedID == "" {
		return nil
	}
	i := r.activeIndex(r.selectedID)
	if i < 0 {
		return nil
	}
	c := r.active[i].Clone()
	return &c
}

// SetSelectedChat selects chat by id. Nil, or a chat that is not active,
// clears the selection.
func (r *Repository) SetSelectedChat(chat *models.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat == nil || r.activeIndex(chat.ID) < 0 {
		r.selectedID = ""
		return
	}
	r.selectedID = chat.ID
}

// AddChat inserts chat at the front of the active collection. It returns
// false and leaves the repository unchanged when the id is empty or already
// used by an active or deleted chat.
func (r *Repository) AddChat(chat models.Chat) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat.ID == "" || r.activeIndex(chat.ID) >= 0 || r.deletedIndex(chat.ID) >= 0 {
		r.log.Warn("rejecting chat with duplicate id", zap.String("chat_id", chat.ID))
		return false
	}
	r.active = prepend(r.active, chat.Clone())
	return true
}

// NewChat creates an empty chat for a document and adds it.
func (r *Repository) NewChat(fileName string) (models.Chat, bool) {
	ext := filepath.Ext(fileName)
	fileType := strings.ToLower(strings.TrimPrefix(ext, "."))
	if fileType == "" {
		fileType = "file"
	}
	chat := models.Chat{
		ID:          r.ids.New(),
		Title:       strings.TrimSuffix(fileName, ext),
		FileName:    fileName,
		FileType:    fileType,
		LastMessage: NewChatPreview,
		Timestamp:   r.clock.Now(),
		Messages:    []models.Message{},
	}
	if !r.AddChat(chat) {
		return models.Chat{}, false
	}
	return chat, true
}

// NewMessage builds a message stamped with the repository clock.
func (r *Repository) NewMessage(content string, sender models.Sender) models.Message {
	return models.Message{
		ID:        r.ids.New(),
		Content:   content,
		Sender:    sender,
		Timestamp: r.clock.Now(),
	}
}

// DeleteChat moves an active chat to the front of the trash and clears the
// selection if it pointed at it.
func (r *Repository) DeleteChat(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.activeIndex(id)
	if i < 0 {
		return false
	}
	chat := r.active[i]
	r.active = append(r.active[:i:i], r.active[i+1:]...)
	r.deleted = prepend(r.deleted, models.DeletedChat{Chat: chat, DeletedAt: r.clock.Now()})
	if r.selectedID == id {
		r.selectedID = ""
	}
	return true
}

// RestoreChat moves a chat from the trash back to the front of the active
// collection, dropping its deletion time.
func (r *Repository) RestoreChat(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.deletedIndex(id)
	if i < 0 {
		return false
	}
	chat := r.deleted[i].Chat
	r.deleted = append(r.deleted[:i:i], r.deleted[i+1:]...)
	r.active = prepend(r.active, chat)
	return true
}

// DeletePermanently removes a chat from the trash. Active chats are never
// touched.
func (r *Repository) DeletePermanently(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.deletedIndex(id)
	if i < 0 {
		return false
	}
	r.deleted = append(r.deleted[:i:i], r.deleted[i+1:]...)
	return true
}

// PurgeDeletedBefore permanently removes trash entries deleted before
// cutoff and returns how many were removed.
func (r *Repository) PurgeDeletedBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.deleted[:0:0]
	for _, d := range r.deleted {
		if d.DeletedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	removed := len(r.deleted) - len(kept)
	r.deleted = kept
	return removed
}

// AddMessage appends msg to an active chat, sets its preview to the
// message content and its activity time to now. Messages with an unknown
// sender or an id already present in the chat are ignored.
func (r *Repository) AddMessage(chatID string, msg models.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.activeIndex(chatID)
	if i < 0 {
		return false
	}
	if !msg.Sender.Valid() {
		r.log.Warn("ignoring message with unknown sender",
			zap.String("chat_id", chatID), zap.String("sender", string(msg.Sender)))
		return false
	}
	chat := r.active[i].Clone()
	for _, m := range chat.Messages {
		if m.ID == msg.ID {
			r.log.Warn("ignoring duplicate message",
				zap.String("chat_id", chatID), zap.String("message_id", msg.ID))
			return false
		}
	}
	chat.Messages = append(chat.Messages, msg)
	chat.LastMessage = msg.Content
	chat.Timestamp = r.clock.Now()
	r.active[i] = chat
	return true
}

func (r *Repository) activeIndex(id string) int {
	for i := range r.active {
		if r.active[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) deletedIndex(id string) int {
	for i := range r.deleted {
		if r.deleted[i].ID == id {
			return i
		}
	}
	return -1
}

func prepend[T any](s []T, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, v)
	return append(out, s...)
}

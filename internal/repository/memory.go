package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"novel-forge/backend/internal/models"
)

// MemoryStore keeps every entity in process memory. It backs the
// DB_DRIVER=memory mode and the service tests.
type MemoryStore struct {
	mu            sync.RWMutex
	nextID        uint
	conversations map[uint]models.Conversation
	messages      []models.Message
	novels        map[uint]models.Novel
	chapters      map[uint]models.Chapter
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uint]models.Conversation),
		novels:        make(map[uint]models.Novel),
		chapters:      make(map[uint]models.Chapter),
		now:           time.Now,
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

// Conversations returns the store as a ConversationRepository.
func (s *MemoryStore) Conversations() *MemoryConversationRepository {
	return &MemoryConversationRepository{s: s}
}

// Messages returns the store as a MessageRepository.
func (s *MemoryStore) Messages() *MemoryMessageRepository {
	return &MemoryMessageRepository{s: s}
}

func (s *MemoryStore) Novels() *MemoryNovelRepository {
	return &MemoryNovelRepository{s: s}
}

func (s *MemoryStore) Chapters() *MemoryChapterRepository {
	return &MemoryChapterRepository{s: s}
}

type MemoryConversationRepository struct{ s *MemoryStore }

func (r *MemoryConversationRepository) Create(_ context.Context, title string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	conv := models.Conversation{ID: r.s.id(), Title: title, CreatedAt: now, UpdatedAt: now}
	r.s.conversations[conv.ID] = conv
	return &conv, nil
}

func (r *MemoryConversationRepository) GetByID(_ context.Context, id uint) (*models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	conv, ok := r.s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (r *MemoryConversationRepository) Touch(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.UpdatedAt = r.s.now()
	r.s.conversations[id] = conv
	return nil
}

func (r *MemoryConversationRepository) List(_ context.Context) ([]models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Conversation, 0, len(r.s.conversations))
	for _, c := range r.s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryConversationRepository) UpdateTitle(_ context.Context, id uint, title string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = r.s.now()
	r.s.conversations[id] = conv
	return &conv, nil
}

func (r *MemoryConversationRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.conversations, id)
	r.s.deleteMessagesLocked(id)
	return nil
}

type MemoryMessageRepository struct{ s *MemoryStore }

func (r *MemoryMessageRepository) Append(_ context.Context, conversationID uint, role models.Role, content string) (*models.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("append message: invalid role %q", role)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("append message: conversation %d: %w", conversationID, ErrNotFound)
	}
	msg := models.Message{
		ID:             r.s.id(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      r.s.now(),
	}
	r.s.messages = append(r.s.messages, msg)
	return &msg, nil
}

func (r *MemoryMessageRepository) ListByConversation(_ context.Context, conversationID uint) ([]models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryMessageRepository) DeleteByConversation(_ context.Context, conversationID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.deleteMessagesLocked(conversationID)
	return nil
}

func (s *MemoryStore) deleteMessagesLocked(conversationID uint) {
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ConversationID != conversationID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

type MemoryNovelRepository struct{ s *MemoryStore }

func (r *MemoryNovelRepository) List(_ context.Context) ([]models.Novel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Novel, 0, len(r.s.novels))
	for _, n := range r.s.novels {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryNovelRepository) GetByID(_ context.Context, id uint) (*models.Novel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.novels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (r *MemoryNovelRepository) Create(_ context.Context, novel *models.Novel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	novel.ID = r.s.id()
	novel.CreatedAt, novel.UpdatedAt = now, now
	r.s.novels[novel.ID] = *novel
	return nil
}

func (r *MemoryNovelRepository) Update(_ context.Context, novel *models.Novel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.novels[novel.ID]; !ok {
		return ErrNotFound
	}
	novel.UpdatedAt = r.s.now()
	r.s.novels[novel.ID] = *novel
	return nil
}

func (r *MemoryNovelRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.novels[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.novels, id)
	for cid, c := range r.s.chapters {
		if c.NovelID == id {
			delete(r.s.chapters, cid)
		}
	}
	return nil
}

type MemoryChapterRepository struct{ s *MemoryStore }

func (r *MemoryChapterRepository) ListByNovel(_ context.Context, novelID uint) ([]models.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Chapter
	for _, c := range r.s.chapters {
		if c.NovelID == novelID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryChapterRepository) GetByID(_ context.Context, id uint) (*models.Chapter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.chapters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryChapterRepository) Create(_ context.Context, chapter *models.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.novels[chapter.NovelID]; !ok {
		return fmt.Errorf("create chapter: novel %d: %w", chapter.NovelID, ErrNotFound)
	}
	now := r.s.now()
	chapter.ID = r.s.id()
	chapter.CreatedAt, chapter.UpdatedAt = now, now
	r.s.chapters[chapter.ID] = *chapter
	return nil
}

func (r *MemoryChapterRepository) Update(_ context.Context, chapter *models.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.chapters[chapter.ID]; !ok {
		return ErrNotFound
	}
	chapter.UpdatedAt = r.s.now()
	r.s.chapters[chapter.ID] = *chapter
	return nil
}

func (r *MemoryChapterRepository) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.chapters[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.chapters, id)
	return nil
}

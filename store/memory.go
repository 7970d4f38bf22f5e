package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/effective-security/toolagents/pkg/llms"
)

type inMemory struct {
	mu       sync.RWMutex
	messages map[string][]llms.Message
	chats    map[string]*ChatInfo
}

// NewMemoryStore returns a ChatStore kept in the process memory.
func NewMemoryStore() ChatStore {
	return &inMemory{
		messages: make(map[string][]llms.Message),
		chats:    make(map[string]*ChatInfo),
	}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	id, err := chatID(ctx)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.messages[id])
}

func (m *inMemory) Add(ctx context.Context, msg llms.Message) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.messages[id], msg)
	if len(list) > MaxMessages {
		list = slices.Clone(list[len(list)-MaxMessages:])
	}
	m.messages[id] = list
	m.chat(id).update("", nil)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	delete(m.chats, id)
	return nil
}

// chat returns the chat info, created on first use.
// Must be called under the lock.
func (m *inMemory) chat(id string) *ChatInfo {
	c, ok := m.chats[id]
	if !ok {
		c = newChatInfo(id)
		m.chats[id] = c
	}
	return c
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error) {
	id, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chat(id)
	c.update(title, metadata)
	cp := *c
	return &cp, nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	cid, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = cid
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		c = newChatInfo(id)
	}
	cp := *c
	cp.Messages = slices.Clone(m.messages[id])
	return &cp, nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatID(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.chats))
	for id := range m.chats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

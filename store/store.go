// Package store provides the conversation history of the agents,
// keyed by the chat ID of chatmodel.ChatContext.
package store

import (
	"context"
	"time"

	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "store")

// MaxMessages is the number of the most recent messages kept per chat.
const MaxMessages = 50

// MessageStore keeps the messages of the chat identified by the context.
type MessageStore interface {
	Messages(ctx context.Context) []llms.Message
	Add(ctx context.Context, msg llms.Message) error
	Reset(ctx context.Context) error
}

// ChatStore is a MessageStore that also keeps the chat info.
type ChatStore interface {
	MessageStore
	// UpdateChat creates or updates the chat with the title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error)
	// GetChatInfo returns the chat info with messages,
	// the chat ID from the context is used when id is empty.
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
	// ListChats returns the IDs of the known chats.
	ListChats(ctx context.Context) ([]string, error)
}

// ChatInfo describes a chat.
type ChatInfo struct {
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Messages  []llms.Message `json:"messages,omitempty"`
}

func chatID(ctx context.Context) (string, error) {
	id := chatmodel.GetChatID(ctx)
	if id == "" {
		return "", chatmodel.ErrInvalidChatContext
	}
	return id, nil
}

func newChatInfo(id string) *ChatInfo {
	now := time.Now()
	return &ChatInfo{
		ChatID:    id,
		Title:     "New Chat",
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}
}

func (c *ChatInfo) update(title string, metadata map[string]any) {
	if title != "" {
		c.Title = title
	}
	if metadata != nil {
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
	c.UpdatedAt = time.Now()
}

package store

import (
	"context"
	"encoding/json"
	"path"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps the chats under the prefix:
// - `/<prefix>/chatstore/messages/<chatID>` list of JSON encoded messages
// - `/<prefix>/chatstore/info/<chatID>` JSON encoded ChatInfo without messages
// - `/<prefix>/chatstore/chats` set of chat IDs

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a ChatStore in Redis.
func NewRedisStore(client redis.UniversalClient, prefix string) ChatStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisClient returns a client for the redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis URL")
	}
	return redis.NewClient(opts), nil
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) infoKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) chatsKey() string {
	return path.Join("/", m.prefix, "chatstore", "chats")
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	id, err := chatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "chat_id", "err", err.Error())
		return nil
	}
	return m.messages(ctx, id)
}

func (m *redisStore) messages(ctx context.Context, id string) []llms.Message {
	data, err := m.client.LRange(ctx, m.messagesKey(id), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal_message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msg llms.Message) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := m.messagesKey(id)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -MaxMessages, -1)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}

	_, err = m.UpdateChat(ctx, "", nil)
	return err
}

func (m *redisStore) Reset(ctx context.Context) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(id))
	pipe.Del(ctx, m.infoKey(id))
	pipe.SRem(ctx, m.chatsKey(), id)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

func (m *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error) {
	id, err := chatID(ctx)
	if err != nil {
		return nil, err
	}

	chat, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	chat.update(title, metadata)

	if err = m.saveChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (m *redisStore) saveChat(ctx context.Context, chat *ChatInfo) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.infoKey(chat.ChatID), data, 0)
	pipe.SAdd(ctx, m.chatsKey(), chat.ChatID)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	cid, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = cid
	}

	info, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	info.Messages = m.messages(ctx, id)
	return info, nil
}

// getChatInfo returns the stored chat info without messages,
// or a new one when the chat is not stored yet.
func (m *redisStore) getChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	data, err := m.client.Get(ctx, m.infoKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newChatInfo(id), nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}

	chat := &ChatInfo{}
	if err = json.Unmarshal([]byte(data), chat); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat, nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatID(ctx); err != nil {
		return nil, err
	}

	ids, err := m.client.SMembers(ctx, m.chatsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	sort.Strings(ids)
	return ids, nil
}

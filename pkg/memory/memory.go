// Package memory provides the bounded conversation-history store used by
// LLM nodes with memory enabled. History is keyed per workflow, not per
// execution, so consecutive runs share context.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// HistoryLimit caps the number of retained entries per workflow. The list
// is a FIFO: the oldest entry is evicted first.
const HistoryLimit = 25

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one conversation turn.
type Entry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

// Store keeps per-workflow history in a Redis list, push-and-trim on every
// write. Shared by all worker instances.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func key(workflowID string) string {
	return fmt.Sprintf("workflow:%s:memory", workflowID)
}

// History returns the retained entries for a workflow, oldest first.
func (s *Store) History(ctx context.Context, workflowID string) ([]Entry, error) {
	items, err := s.client.LRange(ctx, key(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load memory for workflow %s: %w", workflowID, err)
	}

	entries := make([]Entry, 0, len(items))

	for _, item := range items {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Append records one turn and trims the list to the most recent
// HistoryLimit entries.
func (s *Store) Append(ctx context.Context, workflowID, role, content string) error {
	entry, err := json.Marshal(Entry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode memory entry: %w", err)
	}

	k := key(workflowID)

	err = s.client.RPush(ctx, k, entry).Err()
	if err != nil {
		return fmt.Errorf("failed to append memory for workflow %s: %w", workflowID, err)
	}

	err = s.client.LTrim(ctx, k, -HistoryLimit, -1).Err()
	if err != nil {
		return fmt.Errorf("failed to trim memory for workflow %s: %w", workflowID, err)
	}

	return nil
}

// Package queue implements the durable execution queue on a Redis stream
// with a competing-consumers group: each submitted execution is claimed by
// exactly one worker instance and removed only after explicit
// acknowledgment.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	// Stream is the append-only stream producers enqueue executions on.
	Stream = "workflow:executions"

	// DefaultGroup is the consumer group worker instances join.
	DefaultGroup = "weft-workers"

	// maxStreamLen bounds the stream with approximate trimming on enqueue.
	maxStreamLen = 10000
)

// Message is one submitted execution as carried on the stream.
type Message struct {
	ID          string // stream entry id, used for acknowledgment
	ExecutionID string
	WorkflowID  string
	Payload     map[string]any
}

// Queue wraps the stream and consumer-group operations used by both the
// producer (enqueue) and the worker (read/ack) sides.
type Queue struct {
	client redis.UniversalClient
	stream string
	group  string
	logger *slog.Logger
}

func NewQueue(client redis.UniversalClient, group string, logger *slog.Logger) *Queue {
	if group == "" {
		group = DefaultGroup
	}

	return &Queue{
		client: client,
		stream: Stream,
		group:  group,
		logger: logger.With("module", "queue", "stream", Stream, "group", group),
	}
}

// Enqueue appends an execution to the stream, trimming it to roughly the
// most recent maxStreamLen entries.
func (q *Queue) Enqueue(ctx context.Context, executionID, workflowID string, payload map[string]any) error {
	if payload == nil {
		payload = make(map[string]any)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for execution %s: %w", executionID, err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{
			"executionId": executionID,
			"workflowId":  workflowID,
			"payload":     string(encoded),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue execution %s: %w", executionID, err)
	}

	q.logger.InfoContext(ctx, "Execution queued", "execution_id", executionID, "workflow_id", workflowID)

	return nil
}

// EnsureGroup creates the consumer group at the start of the stream if it
// does not exist yet. Safe to call from every worker instance on boot.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", q.group, err)
	}

	return nil
}

// Read claims up to count unclaimed messages for the given consumer
// identity, blocking up to block when the stream is empty. Returns no
// messages (and no error) on timeout.
func (q *Queue) Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []Message

	for _, stream := range streams {
		for _, entry := range stream.Messages {
			messages = append(messages, decodeEntry(entry))
		}
	}

	return messages, nil
}

// Ack removes a claimed message from the pending list. Called only after
// the execution reached a terminal outcome.
func (q *Queue) Ack(ctx context.Context, messageID string) error {
	err := q.client.XAck(ctx, q.stream, q.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message %s: %w", messageID, err)
	}

	return nil
}

// Pending reports how many claimed-but-unacknowledged messages the group
// holds. Messages stuck here after a worker crash stay claimable; a reclaim
// sweep over this list is the extension point for redelivery.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to inspect pending entries: %w", err)
	}

	return pending.Count, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func decodeEntry(entry redis.XMessage) Message {
	msg := Message{ID: entry.ID}

	if v, ok := entry.Values["executionId"].(string); ok {
		msg.ExecutionID = v
	}

	if v, ok := entry.Values["workflowId"].(string); ok {
		msg.WorkflowID = v
	}

	if raw, ok := entry.Values["payload"].(string); ok {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			msg.Payload = payload
		}
	}

	return msg
}

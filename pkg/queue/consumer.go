package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	readBatchSize = 10
	readBlock     = 3 * time.Second
)

// Handler processes one claimed message. A nil return means the execution
// reached a terminal outcome (including handled failures and poison
// messages) and the message can be acknowledged. A non-nil return leaves
// the message pending for a later reclaim.
type Handler func(ctx context.Context, msg Message) error

// Consumer is the long-running competing-consumers loop of one worker
// instance. Messages within a read batch are dispatched concurrently; each
// message maps to exactly one handler invocation.
type Consumer struct {
	queue      *Queue
	consumerID string
	handler    Handler
	logger     *slog.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewConsumer(queue *Queue, consumerID string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:      queue,
		consumerID: consumerID,
		handler:    handler,
		logger: logger.With(
			"module", "queue_consumer",
			"consumer_id", consumerID,
		),
		stopCh: make(chan struct{}),
	}
}

// Start ensures the consumer group exists and begins the claim loop.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.queue.EnsureGroup(ctx)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Starting queue consumer")

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			messages, err := c.queue.Read(ctx, c.consumerID, readBatchSize, readBlock)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				c.logger.ErrorContext(ctx, "Error reading from stream", "error", err)
				time.Sleep(1 * time.Second)

				continue
			}

			c.dispatch(ctx, messages)
		}
	}
}

// dispatch fans a batch out to the handler and waits for all of it before
// the next read. Acknowledgment happens per message, only after its handler
// returns a terminal outcome; a crash in between leaves the message pending
// for crash recovery.
func (c *Consumer) dispatch(ctx context.Context, messages []Message) {
	var batch sync.WaitGroup

	for _, msg := range messages {
		batch.Add(1)

		go func(msg Message) {
			defer batch.Done()

			logger := c.logger.With(
				"message_id", msg.ID,
				"execution_id", msg.ExecutionID,
				"workflow_id", msg.WorkflowID,
			)
			logger.InfoContext(ctx, "Picked execution")

			err := c.handler(ctx, msg)
			if err != nil {
				logger.ErrorContext(ctx, "Handler did not reach a terminal outcome, leaving message pending", "error", err)

				return
			}

			err = c.queue.Ack(ctx, msg.ID)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to ack message", "error", err)
			}
		}(msg)
	}

	batch.Wait()
}

// Stop terminates the claim loop and waits for in-flight messages.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	return nil
}

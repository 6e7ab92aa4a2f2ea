// Package relay bridges the pub/sub event channels to WebSocket observers.
// Each connected client subscribes to one workflow at a time and receives
// the event payloads verbatim, in publish order.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/weftlabs/weft/pkg/eventbus"
)

// Relay upgrades HTTP requests to WebSocket sessions and fans events from
// the bus out to them.
type Relay struct {
	subscriber eventbus.Subscriber
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewRelay(subscriber eventbus.Subscriber, logger *slog.Logger) *Relay {
	return &Relay{
		subscriber: subscriber,
		logger:     logger.With("module", "relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				// Origin policy is enforced upstream.
				return true
			},
		},
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("Failed to upgrade connection", "error", err, "remote", req.RemoteAddr)

		return
	}

	session := &session{
		conn:       conn,
		subscriber: r.subscriber,
		logger:     r.logger.With("remote", req.RemoteAddr),
	}

	session.run(req.Context())
}

// controlMessage is what clients send to manage their subscription.
type controlMessage struct {
	Type       string `json:"type"`
	WorkflowID string `json:"workflowId"`
}

// session is one connected observer. The read loop is the only goroutine
// mutating the subscription; writes to the socket are serialized through mu
// because the forward goroutine and close path both touch the connection.
type session struct {
	conn       *websocket.Conn
	subscriber eventbus.Subscriber
	logger     *slog.Logger

	mu      sync.Mutex
	sub     eventbus.Subscription
	forward sync.WaitGroup
}

func (s *session) run(ctx context.Context) {
	defer s.close()

	s.logger.Info("Observer connected")

	for {
		var msg controlMessage

		err := s.conn.ReadJSON(&msg)
		if err != nil {
			s.logger.Info("Observer disconnected", "error", err)

			return
		}

		switch msg.Type {
		case "subscribe":
			s.subscribe(ctx, msg.WorkflowID)
		case "unsubscribe":
			s.unsubscribe()
		default:
			s.logger.Warn("Ignoring unknown control message", "type", msg.Type)
		}
	}
}

// subscribe switches the session to the given workflow channel. A second
// subscribe replaces the previous subscription.
func (s *session) subscribe(ctx context.Context, workflowID string) {
	if workflowID == "" {
		s.logger.Warn("Ignoring subscribe without workflowId")

		return
	}

	s.unsubscribe()

	sub, err := s.subscriber.Subscribe(ctx, workflowID)
	if err != nil {
		s.logger.Error("Failed to subscribe", "workflow_id", workflowID, "error", err)

		return
	}

	s.sub = sub
	s.logger.Info("Observer subscribed", "workflow_id", workflowID)

	s.forward.Add(1)

	go func() {
		defer s.forward.Done()

		for payload := range sub.Events() {
			err := s.write(payload)
			if err != nil {
				s.logger.Warn("Failed to forward event", "error", err)

				return
			}
		}
	}()
}

func (s *session) unsubscribe() {
	if s.sub == nil {
		return
	}

	_ = s.sub.Close()
	s.forward.Wait()
	s.sub = nil
}

func (s *session) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *session) close() {
	s.unsubscribe()
	_ = s.conn.Close()
}

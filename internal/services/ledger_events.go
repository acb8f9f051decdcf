package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
)

const (
	LedgerChannelPrefix = "ledger:user:"
	EventTypeLedger     = "ledger_update"

	subscriberBuffer = 16
)

// LedgerEvent is the payload sent over Redis and the WebSocket.
type LedgerEvent struct {
	Type      string                  `json:"type"`
	UserID    string                  `json:"user_id"`
	Record    models.DailyMacroRecord `json:"record"`
	Timestamp time.Time               `json:"timestamp"`
}

// LedgerHub publishes ledger updates to Redis and fans events received from
// Redis out to the WebSocket connections of this instance. One pattern
// subscription is shared by every connection.
type LedgerHub struct {
	client *redis.Client
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[chan LedgerEvent]struct{}

	started sync.Once
}

func NewLedgerHub(client *redis.Client, logger *zap.Logger) *LedgerHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHub{
		client: client,
		logger: logger,
		subs:   make(map[string]map[chan LedgerEvent]struct{}),
	}
}

// PublishLedgerUpdate implements LedgerPublisher.
func (h *LedgerHub) PublishLedgerUpdate(ctx context.Context, userID string, record models.DailyMacroRecord) error {
	event := LedgerEvent{
		Type:      EventTypeLedger,
		UserID:    userID,
		Record:    record,
		Timestamp: time.Now().UTC(),
	}
	if h.client == nil {
		h.Dispatch(event)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, LedgerChannelPrefix+userID, data).Err()
}

// Subscribe registers a local listener for userID. The returned function
// must be called to release it.
func (h *LedgerHub) Subscribe(userID string) (<-chan LedgerEvent, func()) {
	ch := make(chan LedgerEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan LedgerEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Dispatch delivers event to the local listeners of its user. Slow
// listeners drop events rather than block the subscriber loop.
func (h *LedgerHub) Dispatch(event LedgerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropping ledger event for slow subscriber", zap.String("user_id", event.UserID))
		}
	}
}

// Start runs the shared Redis subscriber until ctx is cancelled. Calling it
// more than once has no effect.
func (h *LedgerHub) Start(ctx context.Context) {
	if h.client == nil {
		return
	}
	h.started.Do(func() {
		go h.run(ctx)
	})
}

func (h *LedgerHub) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.client.PSubscribe(ctx, LedgerChannelPrefix+"*")
			defer pubsub.Close()

			h.logger.Info("ledger subscriber started", zap.String("pattern", LedgerChannelPrefix+"*"))

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					h.logger.Warn("ledger subscriber error", zap.Error(err), zap.Duration("backoff", backoff))
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var event LedgerEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.logger.Warn("failed to unmarshal ledger event", zap.Error(err))
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, LedgerChannelPrefix)
				}
				h.Dispatch(event)
			}
		}()
	}
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// FeedConfig holds settings for the buzz change feed.
type FeedConfig struct {
	DatabaseURL   string
	NotifyChannel string
	PingInterval  time.Duration
	MinReconnect  time.Duration
	MaxReconnect  time.Duration
}

// DefaultFeedConfig returns the default feed configuration.
func DefaultFeedConfig(databaseURL string) FeedConfig {
	return FeedConfig{
		DatabaseURL:   databaseURL,
		NotifyChannel: "player_answers_feed",
		PingInterval:  90 * time.Second,
		MinReconnect:  10 * time.Second,
		MaxReconnect:  time.Minute,
	}
}

// BuzzNotification is the change-feed row for a new buzz: the durable
// fallback path behind the relay's BUZZ fast path. Consumers dedup by player,
// so receiving a buzz on both paths is harmless.
type BuzzNotification struct {
	GameID     uuid.UUID `json:"game_id"`
	QuestionID string    `json:"question_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	BuzzedAt   time.Time `json:"buzzed_at"`
}

// Feed listens on the Postgres NOTIFY channel fired by the player_answers
// insert trigger and fans notifications out to per-game subscribers.
type Feed struct {
	listener *pq.Listener
	cfg      FeedConfig

	mu   sync.Mutex
	subs map[uuid.UUID]map[chan BuzzNotification]bool
	all  map[chan BuzzNotification]bool
}

// NewFeed opens the LISTEN connection.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnect,
		cfg.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("feed listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for buzz notifications")
	return &Feed{
		listener: l,
		cfg:      cfg,
		subs:     make(map[uuid.UUID]map[chan BuzzNotification]bool),
		all:      make(map[chan BuzzNotification]bool),
	}, nil
}

// Subscribe returns a channel of buzz notifications for one game.
func (f *Feed) Subscribe(gameID uuid.UUID) chan BuzzNotification {
	ch := make(chan BuzzNotification, 64)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs[gameID] == nil {
		f.subs[gameID] = make(map[chan BuzzNotification]bool)
	}
	f.subs[gameID][ch] = true
	return ch
}

// SubscribeAll returns a channel carrying every game's buzz notifications.
// The gateway uses it to bridge the fallback path to its connection pools.
func (f *Feed) SubscribeAll() chan BuzzNotification {
	ch := make(chan BuzzNotification, 256)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.all == nil {
		f.all = make(map[chan BuzzNotification]bool)
	}
	f.all[ch] = true
	return ch
}

// UnsubscribeAll removes a firehose subscriber channel.
func (f *Feed) UnsubscribeAll(ch chan BuzzNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.all, ch)
}

// Unsubscribe removes a subscriber channel.
func (f *Feed) Unsubscribe(gameID uuid.UUID, ch chan BuzzNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if subs, ok := f.subs[gameID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(f.subs, gameID)
		}
	}
}

// Run pumps notifications until the context is cancelled, pinging the
// connection on an interval to detect silent drops.
func (f *Feed) Run(ctx context.Context) error {
	defer f.listener.Close()

	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("buzz feed shutting down")
			return nil

		case n := <-f.listener.Notify:
			if n == nil {
				// Reconnect event; pq re-establishes LISTEN by itself.
				continue
			}
			f.dispatch(n.Extra)

		case <-ticker.C:
			if err := f.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("feed ping failed")
			}
		}
	}
}

func (f *Feed) dispatch(payload string) {
	var notif BuzzNotification
	if err := json.Unmarshal([]byte(payload), &notif); err != nil {
		log.Warn().Err(err).Msg("discarding malformed buzz notification")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[notif.GameID] {
		select {
		case ch <- notif:
		default:
			// Subscriber is slow; the relay fast path already covered it.
		}
	}
	for ch := range f.all {
		select {
		case ch <- notif:
		default:
		}
	}
}

package session

import (
	"log/slog"
	"time"
)

// Option configures the Manager.
type Option func(*Manager)

// WithEpochStore replaces the in-memory epoch store.
func WithEpochStore(epochs EpochStore) Option {
	return func(m *Manager) { m.epochs = epochs }
}

// WithTransport sets how tokens travel between client and server.
func WithTransport(t Transport) Option {
	return func(m *Manager) { m.transport = t }
}

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/angeloszaimis/blobstream/internal/backend"
)

// ErrCacheClosed is returned by Get once Close has been called.
var ErrCacheClosed = errors.New("session cache closed")

type Cache struct {
	opener   backend.Opener
	logger   *slog.Logger
	mutex    sync.RWMutex
	sessions map[backend.Handle]backend.Session
	closed   bool
	group    singleflight.Group
}

func NewCache(opener backend.Opener, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		opener:   opener,
		logger:   logger,
		sessions: make(map[backend.Handle]backend.Session),
	}
}

// Get returns the session bound to h, opening it on first use.
func (c *Cache) Get(ctx context.Context, h backend.Handle) (backend.Session, error) {
	c.mutex.RLock()
	sess, ok := c.sessions[h]
	closed := c.closed
	c.mutex.RUnlock()

	if ok {
		return sess, nil
	}
	if closed {
		return nil, ErrCacheClosed
	}

	// The shared open outlives the request that started it.
	openCtx := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(h.Name+"\x00"+h.URL, func() (interface{}, error) {
		c.mutex.RLock()
		existing, ok := c.sessions[h]
		c.mutex.RUnlock()
		if ok {
			return existing, nil
		}

		opened, err := c.opener(openCtx, h)
		if err != nil {
			return nil, err
		}

		c.mutex.Lock()
		if c.closed {
			c.mutex.Unlock()
			// Close already ran; nobody else will release this one.
			if err := opened.Close(); err != nil {
				c.logger.Warn("failed to close late session",
					slog.String("backend", h.Name),
					slog.String("error", err.Error()),
				)
			}
			return nil, ErrCacheClosed
		}
		c.sessions[h] = opened
		c.mutex.Unlock()

		c.logger.Info("backend session opened",
			slog.String("backend", h.Name),
		)
		return opened, nil
	})
	if err != nil {
		c.logger.Error("failed to open backend session",
			slog.String("backend", h.Name),
			slog.Bool("shared", shared),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("open session %s: %w", h.Name, err)
	}

	return v.(backend.Session), nil
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.sessions)
}

// Close closes every cached session and empties the cache. Later calls to
// Get fail with ErrCacheClosed.
func (c *Cache) Close() error {
	c.mutex.Lock()
	sessions := c.sessions
	c.sessions = make(map[backend.Handle]backend.Session)
	c.closed = true
	c.mutex.Unlock()

	var errs []error
	for h, sess := range sessions {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", h.Name, err))
		}
	}

	return errors.Join(errs...)
}

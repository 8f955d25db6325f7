package dbconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/serroba/urls-node/internal/metrics"
	"github.com/serroba/urls-node/internal/secrets"
	"go.uber.org/zap"
)

const defaultReleaseTimeout = 5 * time.Second

// Cache holds at most one live connection for the process and hands it out
// through exclusive leases. A pgx connection serves one caller at a time, so
// concurrent invocations queue for the lease.
type Cache struct {
	resolver       secrets.Resolver
	endpoint       Endpoint
	tlsConfig      *tls.Config
	dial           Dialer
	closeOnReturn  bool
	releaseTimeout time.Duration
	logger         *zap.Logger

	slot chan struct{}
	conn Conn // guarded by slot
}

// Option configures a Cache.
type Option func(*Cache)

// WithCloseOnReturn controls whether a released connection is closed (true,
// the default) or kept for the next invocation.
func WithCloseOnReturn(closeOnReturn bool) Option {
	return func(c *Cache) {
		c.closeOnReturn = closeOnReturn
	}
}

// WithReleaseTimeout bounds how long closing a connection may take.
func WithReleaseTimeout(timeout time.Duration) Option {
	return func(c *Cache) {
		if timeout > 0 {
			c.releaseTimeout = timeout
		}
	}
}

// NewCache creates an empty connection cache.
func NewCache(
	resolver secrets.Resolver,
	endpoint Endpoint,
	tlsConfig *tls.Config,
	dial Dialer,
	logger *zap.Logger,
	opts ...Option,
) *Cache {
	c := &Cache{
		resolver:       resolver,
		endpoint:       endpoint,
		tlsConfig:      tlsConfig,
		dial:           dial,
		closeOnReturn:  true,
		releaseTimeout: defaultReleaseTimeout,
		logger:         logger,
		slot:           make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lease is exclusive access to the cached connection until Release.
type Lease struct {
	cache *Cache
	conn  Conn
	once  sync.Once
}

// Conn returns the leased connection.
func (l *Lease) Conn() Conn {
	return l.conn
}

// Release returns the lease. It is safe to call more than once; only the
// first call has an effect. Cancellation of ctx does not prevent the close.
func (l *Lease) Release(ctx context.Context) {
	l.once.Do(func() {
		l.cache.release(ctx, l.conn)
	})
}

// Acquire returns a lease on a healthy connection, reusing the cached one when
// it is still open and opening a new one otherwise.
func (c *Cache) Acquire(ctx context.Context) (*Lease, error) {
	if err := c.lock(ctx); err != nil {
		metrics.RecordAcquisition(metrics.AcquireFailed)

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn, err := c.current(ctx)
	if err != nil {
		c.unlock()
		metrics.RecordAcquisition(metrics.AcquireFailed)

		return nil, err
	}

	return &Lease{cache: c, conn: conn}, nil
}

// Invalidate closes the cached connection so the next Acquire opens a fresh
// one with freshly fetched credentials.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	return c.closeLocked(ctx)
}

// Shutdown closes the cached connection.
func (c *Cache) Shutdown() error {
	return c.Invalidate(context.Background())
}

func (c *Cache) current(ctx context.Context) (Conn, error) {
	if c.conn != nil && !c.conn.IsClosed() {
		metrics.RecordAcquisition(metrics.AcquireReused)

		return c.conn, nil
	}

	c.conn = nil

	creds, err := c.resolver.FetchCredentials(ctx)
	metrics.RecordCredentialFetch(err)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn, err := c.dial(ctx, c.endpoint.ConnString(creds), c.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.endpoint, err)
	}

	c.conn = conn
	metrics.RecordAcquisition(metrics.AcquireOpened)

	c.logger.Debug("opened database connection", zap.Stringer("endpoint", c.endpoint))

	return conn, nil
}

func (c *Cache) release(ctx context.Context, conn Conn) {
	defer c.unlock()

	if conn.IsClosed() {
		c.conn = nil

		return
	}

	if !c.closeOnReturn {
		return
	}

	_ = c.closeLocked(ctx)
}

func (c *Cache) closeLocked(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.releaseTimeout)
	defer cancel()

	metrics.ConnectionReleases.Inc()

	if err := conn.Close(closeCtx); err != nil {
		c.logger.Warn("failed to close database connection", zap.Error(err))

		return err
	}

	return nil
}

func (c *Cache) lock(ctx context.Context) error {
	select {
	case c.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) unlock() {
	<-c.slot
}

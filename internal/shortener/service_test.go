package shortener_test

import (
	"context"
	"crypto/tls"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/secrets"
	"github.com/serroba/urls-node/internal/shortener"
	"github.com/serroba/urls-node/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	closeCalls int
	closed     bool
}

func (f *fakeConn) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeConn) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return nil }

func (f *fakeConn) Ping(_ context.Context) error { return nil }

func (f *fakeConn) IsClosed() bool { return f.closed }

func (f *fakeConn) Close(_ context.Context) error {
	f.closeCalls++
	f.closed = true

	return nil
}

type fakeSource struct {
	payload string
	calls   int
}

func (f *fakeSource) GetSecret(_ context.Context, _ string) (string, error) {
	f.calls++

	return f.payload, nil
}

// failingRepository fails every call with err.
type failingRepository struct {
	err error
}

func (f failingRepository) Insert(_ context.Context, _ *shortener.Mapping) error {
	return f.err
}

func (f failingRepository) FindByShortID(_ context.Context, _ shortener.ShortID) (*shortener.Mapping, error) {
	return nil, f.err
}

type fixture struct {
	service *shortener.Service
	store   *store.MemoryStore
	source  *fakeSource
	conns   []*fakeConn
}

func newFixture(t *testing.T, payload string, repo shortener.Repository) *fixture {
	t.Helper()

	f := &fixture{store: store.NewMemoryStore(), source: &fakeSource{payload: payload}}
	if repo == nil {
		repo = f.store
	}

	cache := newCacheFor(f)

	gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
	require.NoError(t, err)

	f.service = shortener.NewService(cache, func(_ dbconn.Conn) shortener.Repository { return repo }, gen)

	return f
}

const validSecret = `{"username":"app","password":"pw"}`

var testOrigin = shortener.Origin{Scheme: "https", Host: "api.x.com", Path: "/urls-node"}

func TestService_Create(t *testing.T) {
	t.Run("returns a short url under the request origin", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)

		res, err := f.service.Create(context.Background(), shortener.CreateRequest{
			URL:         "https://example.com",
			RequesterIP: "1.2.3.4",
			Origin:      testOrigin,
		})

		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^https://api\.x\.com/urls-node/[0-9A-Za-z_-]{7,14}$`), res.ShortURL)
		assert.True(t, strings.HasSuffix(res.ShortURL, "/"+string(res.Mapping.ShortID)))
	})

	t.Run("stores url, requester ip and a utc timestamp", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)
		now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*3600))
		f.service.WithClock(func() time.Time { return now })

		res, err := f.service.Create(context.Background(), shortener.CreateRequest{
			URL: "https://example.com", RequesterIP: "1.2.3.4", Origin: testOrigin,
		})
		require.NoError(t, err)

		got, err := f.store.FindByShortID(context.Background(), res.Mapping.ShortID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.URL)
		assert.Equal(t, "1.2.3.4", got.RequesterIP)
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
		assert.True(t, now.Equal(got.CreatedAt))
	})

	t.Run("same url twice yields distinct ids", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)
		req := shortener.CreateRequest{URL: "https://example.com", Origin: testOrigin}

		first, err1 := f.service.Create(context.Background(), req)
		second, err2 := f.service.Create(context.Background(), req)

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.NotEqual(t, first.Mapping.ShortID, second.Mapping.ShortID)
	})

	t.Run("regenerates the id on collision", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)
		_ = f.store.Insert(context.Background(), &shortener.Mapping{ShortID: "taken00", URL: "https://old.com"})

		ids := []string{"taken00", "fresh00"}
		gen := func() string {
			id := ids[0]
			ids = ids[1:]

			return id
		}
		svc := shortener.NewService(newCacheFor(f), func(_ dbconn.Conn) shortener.Repository { return f.store }, gen)

		res, err := svc.Create(context.Background(), shortener.CreateRequest{URL: "https://new.com", Origin: testOrigin})

		require.NoError(t, err)
		assert.Equal(t, shortener.ShortID("fresh00"), res.Mapping.ShortID)
	})

	t.Run("gives up with write failed after repeated collisions", func(t *testing.T) {
		f := newFixture(t, validSecret, failingRepository{err: shortener.ErrDuplicateID})

		_, err := f.service.Create(context.Background(), shortener.CreateRequest{URL: "https://example.com"})

		assert.ErrorIs(t, err, shortener.ErrWriteFailed)
		require.Len(t, f.conns, 1)
		assert.Equal(t, 1, f.conns[0].closeCalls)
	})

	t.Run("write timeout fails and releases the connection exactly once", func(t *testing.T) {
		timeout := fmtWriteFailed(context.DeadlineExceeded)
		f := newFixture(t, validSecret, failingRepository{err: timeout})

		res, err := f.service.Create(context.Background(), shortener.CreateRequest{URL: "https://example.com"})

		assert.Nil(t, res)
		require.ErrorIs(t, err, shortener.ErrWriteFailed)
		require.Len(t, f.conns, 1)
		assert.Equal(t, 1, f.conns[0].closeCalls)
	})

	t.Run("malformed secret fails without a connection", func(t *testing.T) {
		f := newFixture(t, "{not json", nil)

		res, err := f.service.Create(context.Background(), shortener.CreateRequest{URL: "https://example.com"})

		assert.Nil(t, res)
		require.ErrorIs(t, err, dbconn.ErrConnectionFailed)
		assert.ErrorIs(t, err, secrets.ErrSecretMalformed)
		assert.Empty(t, f.conns)
	})

	t.Run("each invocation opens and closes its own connection", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)

		for range 2 {
			_, err := f.service.Create(context.Background(), shortener.CreateRequest{URL: "https://example.com"})
			require.NoError(t, err)
		}

		assert.Equal(t, 2, f.source.calls)
		require.Len(t, f.conns, 2)
		assert.Equal(t, 1, f.conns[0].closeCalls)
		assert.Equal(t, 1, f.conns[1].closeCalls)
	})
}

func TestService_Resolve(t *testing.T) {
	t.Run("round trips a created url", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)

		res, err := f.service.Create(context.Background(), shortener.CreateRequest{
			URL: "https://example.com/a?b=c", Origin: testOrigin,
		})
		require.NoError(t, err)

		id := res.ShortURL[strings.LastIndex(res.ShortURL, "/")+1:]

		url, err := f.service.Resolve(context.Background(), shortener.ShortID(id))

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a?b=c", url)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		f := newFixture(t, validSecret, nil)

		url, err := f.service.Resolve(context.Background(), "doesNotExist")

		assert.Empty(t, url)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
		require.Len(t, f.conns, 1)
		assert.Equal(t, 1, f.conns[0].closeCalls)
	})

	t.Run("read failure releases the connection", func(t *testing.T) {
		f := newFixture(t, validSecret, failingRepository{err: shortener.ErrReadFailed})

		_, err := f.service.Resolve(context.Background(), "abc1234")

		assert.ErrorIs(t, err, shortener.ErrReadFailed)
		require.Len(t, f.conns, 1)
		assert.Equal(t, 1, f.conns[0].closeCalls)
	})

	t.Run("malformed secret fails", func(t *testing.T) {
		f := newFixture(t, `{"username":"app"}`, nil)

		_, err := f.service.Resolve(context.Background(), "abc1234")

		assert.ErrorIs(t, err, secrets.ErrSecretMalformed)
	})
}

// newCacheFor builds a cache that reads the fixture's secret source and records every dialed connection.
func newCacheFor(f *fixture) *dbconn.Cache {
	dial := func(_ context.Context, _ string, _ *tls.Config) (dbconn.Conn, error) {
		conn := &fakeConn{}
		f.conns = append(f.conns, conn)

		return conn, nil
	}

	return dbconn.NewCache(
		secrets.NewStoreResolver(f.source, "db"),
		dbconn.Endpoint{Scheme: "postgres", Host: "db", Port: 5432},
		&tls.Config{},
		dial,
		zap.NewNop(),
	)
}

func fmtWriteFailed(cause error) error {
	return errors.Join(shortener.ErrWriteFailed, cause)
}

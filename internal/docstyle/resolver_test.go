package docstyle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data    map[string][]byte
	loadErr error
	loads   int
	saves   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) Save(_ context.Context, key string, value []byte) error {
	s.saves++
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestResolverStoreFailureFallsBack(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("connection refused")
	r := NewResolver(ResolverConfig{Store: store, Logger: zerolog.Nop()})

	require.Equal(t, Defaults(), r.Resolve(context.Background()))
}

func TestResolverMalformedFallsBack(t *testing.T) {
	store := newMemoryStore()
	store.data[DefaultKey] = []byte(`{"fonts":{`)
	r := NewResolver(ResolverConfig{Store: store, Logger: zerolog.Nop()})

	require.Equal(t, Defaults(), r.Resolve(context.Background()))
}

func TestResolverMissingDescriptor(t *testing.T) {
	r := NewResolver(ResolverConfig{Store: newMemoryStore(), Logger: zerolog.Nop()})
	require.Equal(t, Defaults(), r.Resolve(context.Background()))

	persisted, err := r.Persisted(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `null`, string(persisted))
}

func TestResolverCachesAndInvalidatesOnSave(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.data[DefaultKey] = []byte(`{"fonts":{"body":10}}`)
	r := NewResolver(ResolverConfig{Store: store, Cache: newTestCache(t), Logger: zerolog.Nop()})

	require.Equal(t, 10.0, r.Resolve(ctx).Fonts.Body)
	require.Equal(t, 10.0, r.Resolve(ctx).Fonts.Body)
	require.Equal(t, 1, store.loads)

	saved, err := r.Save(ctx, []byte(`{"fonts":{"body":12}}`))
	require.NoError(t, err)
	require.Equal(t, 12.0, saved.Fonts.Body)

	require.Equal(t, 12.0, r.Resolve(ctx).Fonts.Body)
	require.Equal(t, 2, store.loads)
}

func TestResolverSaveRejectsNonObject(t *testing.T) {
	store := newMemoryStore()
	r := NewResolver(ResolverConfig{Store: store, Logger: zerolog.Nop()})
	_, err := r.Save(context.Background(), []byte(`[1]`))
	require.ErrorIs(t, err, ErrInvalid)
	require.Empty(t, store.data)
}

func TestResolverSaveLeavesStoreUntouchedOnRejection(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.data[DefaultKey] = []byte(`{"fonts":{"body":11}}`)
	r := NewResolver(ResolverConfig{Store: store, Cache: newTestCache(t), Logger: zerolog.Nop()})
	require.Equal(t, 11.0, r.Resolve(ctx).Fonts.Body)

	for _, raw := range []string{``, `[1]`, `"text"`, `{"fonts":`} {
		_, err := r.Save(ctx, []byte(raw))
		require.ErrorIs(t, err, ErrInvalid, raw)
	}
	require.Zero(t, store.saves)
	require.JSONEq(t, `{"fonts":{"body":11}}`, string(store.data[DefaultKey]))
	require.Equal(t, 11.0, r.Resolve(ctx).Fonts.Body)
}

func TestResolverSaveKeepsValidSiblings(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	r := NewResolver(ResolverConfig{Store: store, Logger: zerolog.Nop()})

	saved, err := r.Save(ctx, []byte(`{"fonts":{"body":20},"header":{"companyInfo":[1]}}`))
	require.NoError(t, err)
	require.Equal(t, 20.0, saved.Fonts.Body)
	require.Equal(t, 1, store.saves)
	require.Equal(t, 20.0, r.Resolve(ctx).Fonts.Body)
}

func TestHandlerPut(t *testing.T) {
	store := newMemoryStore()
	h := NewHandler(NewResolver(ResolverConfig{Store: store, Logger: zerolog.Nop()}))

	rr := httptest.NewRecorder()
	h.Put(rr, httptest.NewRequest(http.MethodPut, "/api/v1/settings/document-style", strings.NewReader(`not json`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	h.Put(rr, httptest.NewRequest(http.MethodPut, "/api/v1/settings/document-style", strings.NewReader(`{"header":{"companyName":"ACME"}}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"companyName":"ACME"`)

	rr = httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/settings/document-style", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"persisted":{"header":{"companyName":"ACME"}}`)
}

package venues

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/store/memstore"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

// mapCache keeps JSON values in memory and counts fetches.
type mapCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	fetches int
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = b
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *mapCache) DeletePattern(context.Context, string) error { return nil }

func (c *mapCache) Ping(context.Context) error { return nil }

func (c *mapCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	v, err := fetcher()
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func TestGetHallIsCached(t *testing.T) {
	s := memstore.New()
	hall := s.SeedHallGrid(2, 3, 10)
	c := newMapCache()
	svc := NewService(s, c, 0, logger.Discard())

	for range 3 {
		got, err := svc.GetHall(context.Background(), hall.ID)
		if err != nil {
			t.Fatalf("GetHall: %v", err)
		}
		if len(got.Sectors) != 1 || len(got.Sectors[0].Seats) != 6 || got.StandingSectors[0].Capacity != 10 {
			t.Fatalf("hall = %+v", got)
		}
	}
	if c.fetches != 1 {
		t.Errorf("fetches = %d, want 1", c.fetches)
	}
	if _, ok := c.values[constants.BuildHallLayoutKey(hall.ID)]; !ok {
		t.Error("layout not stored under the hall key")
	}

	if _, err := svc.GetHall(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown hall err = %v, want not found", err)
	}
}

func TestSeatAndStandingLookups(t *testing.T) {
	s := memstore.New()
	hall := s.SeedHallGrid(1, 2, 5)
	svc := NewService(s, nil, 0, logger.Discard())

	seat, err := svc.GetSeat(context.Background(), hall.Sectors[0].Seats[1].ID)
	if err != nil || seat.SectorID != hall.Sectors[0].ID {
		t.Errorf("GetSeat = %+v, %v", seat, err)
	}
	if _, err := svc.GetSeat(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown seat err = %v", err)
	}
	ss, err := svc.GetStandingSector(context.Background(), hall.StandingSectors[0].ID)
	if err != nil || ss.Capacity != 5 {
		t.Errorf("GetStandingSector = %+v, %v", ss, err)
	}
	if _, err := svc.GetStandingSector(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown standing sector err = %v", err)
	}
}

func TestHallEndpoint(t *testing.T) {
	s := memstore.New()
	hall := s.SeedHallGrid(2, 2, 3)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupVenueRoutes(r.Group("/api/v1"), NewController(NewService(s, nil, 0, logger.Discard())))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/halls/"+hall.ID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Data HallResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Capacity != 7 {
		t.Errorf("capacity = %d, want 7", body.Data.Capacity)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/halls/nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

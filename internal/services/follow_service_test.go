package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
)

type edgeKey struct {
	userID string
	clubID primitive.ObjectID
}

// memFollowStore mimics the transactional toggle: each call either applies
// both the edge write and the counter change or neither.
type memFollowStore struct {
	mu     sync.Mutex
	clubs  map[primitive.ObjectID]int64
	edges  map[edgeKey]models.ClubFollow
	seq    int64
	calls  int
	failed []error // returned, in order, by the next ToggleFollow calls
}

func newMemFollowStore(clubs ...primitive.ObjectID) *memFollowStore {
	s := &memFollowStore{
		clubs: make(map[primitive.ObjectID]int64),
		edges: make(map[edgeKey]models.ClubFollow),
	}
	for _, id := range clubs {
		s.clubs[id] = 0
	}
	return s
}

func (s *memFollowStore) ToggleFollow(_ context.Context, userID string, clubID primitive.ObjectID) (*models.FollowStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.failed) > 0 {
		err := s.failed[0]
		s.failed = s.failed[1:]
		return nil, err
	}

	count, ok := s.clubs[clubID]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}

	key := edgeKey{userID, clubID}
	if _, exists := s.edges[key]; exists {
		delete(s.edges, key)
		s.clubs[clubID] = count - 1
		return &models.FollowStatus{ClubID: clubID.Hex(), IsFollowing: false, FollowerCount: count - 1}, nil
	}

	s.seq++
	now := time.Unix(s.seq, 0).UTC()
	s.edges[key] = models.ClubFollow{ID: primitive.NewObjectID(), UserID: userID, ClubID: clubID, CreatedAt: now, UpdatedAt: now}
	s.clubs[clubID] = count + 1
	return &models.FollowStatus{ClubID: clubID.Hex(), IsFollowing: true, FollowerCount: count + 1}, nil
}

func (s *memFollowStore) userEdges(userID string) []models.ClubFollow {
	var out []models.ClubFollow
	for k, e := range s.edges {
		if k.userID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memFollowStore) ListFollowsByUser(_ context.Context, userID string, p models.Pagination) ([]models.ClubFollow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.userEdges(userID)
	start := int(p.Skip())
	if start >= len(all) {
		return []models.ClubFollow{}, nil
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *memFollowStore) CountFollowsByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.userEdges(userID))), nil
}

func (s *memFollowStore) GetFollowedClubIDs(_ context.Context, userID string, clubIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []primitive.ObjectID
	for _, id := range clubIDs {
		if _, ok := s.edges[edgeKey{userID, id}]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *memFollowStore) CountFollowersOfClub(_ context.Context, clubID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.edges {
		if k.clubID == clubID {
			n++
		}
	}
	return n, nil
}

func (s *memFollowStore) GetFollowersCount(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, ok := s.clubs[id]
	if !ok {
		return 0, repositories.ErrClubNotFound
	}
	return count, nil
}

func (s *memFollowStore) hasEdge(userID string, clubID primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[edgeKey{userID, clubID}]
	return ok
}

type memCountCache struct {
	mu          sync.Mutex
	counts      map[string]int64
	invalidated []string
	getErr      error
}

func newMemCountCache() *memCountCache {
	return &memCountCache{counts: make(map[string]int64)}
}

func (c *memCountCache) GetFollowersCount(_ context.Context, clubID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	n, ok := c.counts[clubID]
	return n, ok, nil
}

func (c *memCountCache) SetFollowersCount(_ context.Context, clubID string, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[clubID] = count
	return nil
}

func (c *memCountCache) InvalidateFollowersCount(_ context.Context, clubID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, clubID)
	c.invalidated = append(c.invalidated, clubID)
	return nil
}

func transientConflict() error {
	return fmt.Errorf("%w: WriteConflict", repositories.ErrTransientConflict)
}

func newTestService(store *memFollowStore, countCache *memCountCache, attempts int) FollowService {
	// Keep the interface nil when no cache is wanted.
	if countCache == nil {
		return NewFollowService(store, store, nil, RetryPolicy{MaxAttempts: attempts})
	}
	return NewFollowService(store, store, countCache, RetryPolicy{MaxAttempts: attempts})
}

func TestToggleFollow_Scenario(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	svc := newTestService(store, nil, 3)

	status, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)
	assert.Equal(t, &models.FollowStatus{ClubID: club.Hex(), IsFollowing: true, FollowerCount: 1}, status)

	status, err = svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)
	assert.Equal(t, &models.FollowStatus{ClubID: club.Hex(), IsFollowing: false, FollowerCount: 0}, status)

	missing := primitive.NewObjectID()
	_, err = svc.ToggleFollow(ctx, "1", missing.Hex())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.hasEdge("1", missing))
}

func TestToggleFollow_Involution(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	svc := newTestService(store, nil, 3)

	// Another follower so the count does not start at zero.
	_, err := svc.ToggleFollow(ctx, "other", club.Hex())
	require.NoError(t, err)

	first, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)
	second, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)

	assert.True(t, first.IsFollowing)
	assert.False(t, second.IsFollowing)
	assert.Equal(t, int64(2), first.FollowerCount)
	assert.Equal(t, int64(1), second.FollowerCount)
}

func TestToggleFollow_InvalidInputSkipsStore(t *testing.T) {
	ctx := context.Background()
	store := newMemFollowStore()
	svc := newTestService(store, nil, 3)

	_, err := svc.ToggleFollow(ctx, "", primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ToggleFollow(ctx, "1", "not-an-object-id")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, store.calls)
}

func TestToggleFollow_RetriesTransientConflicts(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	store.failed = []error{transientConflict(), transientConflict()}
	svc := newTestService(store, nil, 3)

	status, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)
	assert.True(t, status.IsFollowing)
	assert.Equal(t, int64(1), status.FollowerCount)
	assert.Equal(t, 3, store.calls)
}

func TestToggleFollow_ConflictsExhausted(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	store.failed = []error{transientConflict(), transientConflict(), transientConflict(), transientConflict()}
	svc := newTestService(store, nil, 3)

	_, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.ErrorIs(t, err, repositories.ErrTransientConflict)
	assert.Equal(t, 3, store.calls)
	assert.False(t, store.hasEdge("1", club))
}

func TestToggleFollow_StorageFaultIsNotRetried(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	boom := errors.New("connection reset")
	store.failed = []error{boom}
	svc := newTestService(store, nil, 3)

	_, err := svc.ToggleFollow(ctx, "1", club.Hex())
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.calls)
}

func TestToggleFollow_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	store.failed = []error{transientConflict()}
	svc := NewFollowService(store, store, nil, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour})

	cancel()
	_, err := svc.ToggleFollow(ctx, "1", club.Hex())
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}

func TestToggleFollow_ConcurrentDistinctActors(t *testing.T) {
	const n = 50
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	svc := newTestService(store, nil, 3)

	results := make([]*models.FollowStatus, n)
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			st, err := svc.ToggleFollow(gCtx, strconv.Itoa(i), club.Hex())
			results[i] = st
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, st := range results {
		assert.True(t, st.IsFollowing)
	}
	count, err := store.GetFollowersCount(ctx, club)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	edges, err := store.CountFollowersOfClub(ctx, club)
	require.NoError(t, err)
	assert.Equal(t, count, edges)
}

func TestToggleFollow_InvalidatesCachedCount(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	countCache := newMemCountCache()
	countCache.counts[club.Hex()] = 41
	svc := newTestService(store, countCache, 3)

	_, err := svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{club.Hex()}, countCache.invalidated)

	count, err := svc.FollowersCount(ctx, club.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), countCache.counts[club.Hex()])
}

func TestFollowersCount(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	store.clubs[club] = 7

	t.Run("cache hit", func(t *testing.T) {
		countCache := newMemCountCache()
		countCache.counts[club.Hex()] = 9
		svc := newTestService(store, countCache, 1)

		count, err := svc.FollowersCount(ctx, club.Hex())
		require.NoError(t, err)
		assert.Equal(t, int64(9), count)
	})

	t.Run("cache error falls back", func(t *testing.T) {
		countCache := newMemCountCache()
		countCache.getErr = errors.New("redis down")
		svc := newTestService(store, countCache, 1)

		count, err := svc.FollowersCount(ctx, club.Hex())
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
	})

	t.Run("no cache", func(t *testing.T) {
		svc := newTestService(store, nil, 1)
		count, err := svc.FollowersCount(ctx, club.Hex())
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
	})

	t.Run("unknown club", func(t *testing.T) {
		svc := newTestService(store, newMemCountCache(), 1)
		_, err := svc.FollowersCount(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListFollows_Pagination(t *testing.T) {
	ctx := context.Background()
	store := newMemFollowStore()
	svc := newTestService(store, nil, 1)

	for i := 0; i < 25; i++ {
		club := primitive.NewObjectID()
		store.clubs[club] = 0
		_, err := svc.ToggleFollow(ctx, "1", club.Hex())
		require.NoError(t, err)
	}

	seen := make(map[primitive.ObjectID]bool)
	var pages int
	for page := 1; ; page++ {
		p := models.Pagination{Page: page, Limit: 10}.WithDefaults()
		res, err := svc.ListFollows(ctx, "1", p)
		require.NoError(t, err)
		assert.Equal(t, int64(25), res.Meta.Total)
		assert.Equal(t, 3, res.Meta.TotalPages)
		pages = res.Meta.TotalPages

		if len(res.Data) == 0 {
			break
		}
		for _, f := range res.Data {
			assert.False(t, seen[f.ClubID], "duplicate edge %s", f.ClubID.Hex())
			seen[f.ClubID] = true
		}
	}
	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
}

func TestListFollows_RejectsBadPagination(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemFollowStore(), nil, 1)

	cases := []models.Pagination{
		{Page: 0, Limit: 10, SortBy: "created_at"},
		{Page: 1, Limit: 0, SortBy: "created_at"},
		{Page: 1, Limit: 10, SortBy: "password"},
	}
	for _, p := range cases {
		_, err := svc.ListFollows(ctx, "1", p)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", p)
	}

	_, err := svc.ListFollows(ctx, "", models.Pagination{}.WithDefaults())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsFollowing(t *testing.T) {
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	store := newMemFollowStore(a, b)
	svc := newTestService(store, nil, 1)

	_, err := svc.ToggleFollow(ctx, "1", a.Hex())
	require.NoError(t, err)

	got, err := svc.IsFollowing(ctx, "1", []string{a.Hex(), b.Hex()})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{a.Hex(): true, b.Hex(): false}, got)

	_, err = svc.IsFollowing(ctx, "1", []string{"zzz"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFollowersCount_UppercaseIDSharesCacheEntry(t *testing.T) {
	ctx := context.Background()
	club := primitive.NewObjectID()
	store := newMemFollowStore(club)
	countCache := newMemCountCache()
	svc := newTestService(store, countCache, 1)
	upper := strings.ToUpper(club.Hex())

	count, err := svc.FollowersCount(ctx, upper)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = svc.ToggleFollow(ctx, "1", club.Hex())
	require.NoError(t, err)

	count, err = svc.FollowersCount(ctx, upper)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NotContains(t, countCache.counts, upper)
}

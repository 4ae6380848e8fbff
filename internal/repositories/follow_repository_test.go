package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/campus-hub/backend/internal/models"
)

// testDatabase connects to the replica set named by MONGO_TEST_URI and
// returns a throwaway database that is dropped when the test ends.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("campushub_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

type fixture struct {
	follows *MongoFollowRepository
	clubs   *MongoClubRepository
	club    *models.Club
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := testDatabase(t)

	follows := NewMongoFollowRepository(db)
	clubs := NewMongoClubRepository(db)
	require.NoError(t, follows.EnsureIndexes(ctx))
	require.NoError(t, clubs.EnsureIndexes(ctx))

	club := &models.Club{UniversityID: primitive.NewObjectID(), Name: "Chess", Slug: "chess", Category: "games"}
	require.NoError(t, clubs.CreateClub(ctx, club))
	return fixture{follows: follows, clubs: clubs, club: club}
}

// assertCounterMatchesEdges checks followers_count against the edge count.
func assertCounterMatchesEdges(t *testing.T, f fixture, clubID primitive.ObjectID) int64 {
	t.Helper()
	ctx := context.Background()
	count, err := f.clubs.GetFollowersCount(ctx, clubID)
	require.NoError(t, err)
	edges, err := f.follows.CountFollowersOfClub(ctx, clubID)
	require.NoError(t, err)
	assert.Equal(t, edges, count)
	return count
}

func TestMongoToggleFollow_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.follows.ToggleFollow(ctx, "1", f.club.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.FollowStatus{ClubID: f.club.ID.Hex(), IsFollowing: true, FollowerCount: 1}, st)
	assertCounterMatchesEdges(t, f, f.club.ID)

	st, err = f.follows.ToggleFollow(ctx, "1", f.club.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.FollowStatus{ClubID: f.club.ID.Hex(), IsFollowing: false, FollowerCount: 0}, st)
	assertCounterMatchesEdges(t, f, f.club.ID)
}

func TestMongoToggleFollow_MissingClubRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := primitive.NewObjectID()

	_, err := f.follows.ToggleFollow(ctx, "1", missing)
	require.ErrorIs(t, err, ErrClubNotFound)

	ids, err := f.follows.GetFollowedClubIDs(ctx, "1", []primitive.ObjectID{missing})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMongoToggleFollow_MissingClubKeepsExistingEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := primitive.NewObjectID()

	// An edge whose club document is gone; the unfollow must not stick.
	now := time.Now().UTC()
	_, err := f.follows.follows.InsertOne(ctx, models.ClubFollow{
		ID:        primitive.NewObjectID(),
		UserID:    "1",
		ClubID:    missing,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	_, err = f.follows.ToggleFollow(ctx, "1", missing)
	require.ErrorIs(t, err, ErrClubNotFound)

	ids, err := f.follows.GetFollowedClubIDs(ctx, "1", []primitive.ObjectID{missing})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{missing}, ids)
}

// toggleWithRetry re-runs the toggle on write conflicts, as the follow
// service does, giving up after a fixed number of attempts.
func toggleWithRetry(ctx context.Context, f fixture, userID string, clubID primitive.ObjectID) (*models.FollowStatus, error) {
	const maxAttempts = 50
	for attempt := 1; ; attempt++ {
		st, err := f.follows.ToggleFollow(ctx, userID, clubID)
		if err == nil || !errors.Is(err, ErrTransientConflict) || attempt >= maxAttempts {
			return st, err
		}
		time.Sleep(time.Duration(attempt) * 5 * time.Millisecond)
	}
}

func TestMongoToggleFollow_ConcurrentActors(t *testing.T) {
	const n = 20
	f := newFixture(t)

	results := make([]*models.FollowStatus, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			st, err := toggleWithRetry(ctx, f, strconv.Itoa(i), f.club.ID)
			results[i] = st
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, st := range results {
		assert.True(t, st.IsFollowing, "actor %d", i)
	}
	assert.Equal(t, int64(n), assertCounterMatchesEdges(t, f, f.club.ID))
}

func TestMongoToggleFollow_ConcurrentSamePair(t *testing.T) {
	for _, n := range []int{8, 9} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			f := newFixture(t)

			g, ctx := errgroup.WithContext(context.Background())
			for i := 0; i < n; i++ {
				g.Go(func() error {
					_, err := toggleWithRetry(ctx, f, "1", f.club.ID)
					return err
				})
			}
			require.NoError(t, g.Wait())

			edges := assertCounterMatchesEdges(t, f, f.club.ID)
			assert.LessOrEqual(t, edges, int64(1))

			ids, err := f.follows.GetFollowedClubIDs(context.Background(), "1", []primitive.ObjectID{f.club.ID})
			require.NoError(t, err)
			assert.Equal(t, n%2 == 1, len(ids) == 1, "%d toggles leave following=%v", n, len(ids) == 1)
		})
	}
}

func TestMongoListFollowsByUser_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		club := &models.Club{UniversityID: f.club.UniversityID, Name: "Club", Slug: fmt.Sprintf("club-%02d", i), Category: "misc"}
		require.NoError(t, f.clubs.CreateClub(ctx, club))
		_, err := f.follows.ToggleFollow(ctx, "1", club.ID)
		require.NoError(t, err)
	}

	total, err := f.follows.CountFollowsByUser(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, int64(25), total)

	seen := make(map[primitive.ObjectID]bool)
	sizes := []int{}
	for page := 1; page <= 4; page++ {
		p := models.Pagination{Page: page, Limit: 10}.WithDefaults()
		rows, err := f.follows.ListFollowsByUser(ctx, "1", p)
		require.NoError(t, err)
		sizes = append(sizes, len(rows))
		for _, row := range rows {
			assert.False(t, seen[row.ID], "edge %s returned twice", row.ID.Hex())
			seen[row.ID] = true
			require.NotNil(t, row.Club)
			assert.Equal(t, row.ClubID, row.Club.ID)
		}
	}
	assert.Equal(t, []int{10, 10, 5, 0}, sizes)
	assert.Len(t, seen, 25)
}

package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/campus-hub/backend/internal/cache"
	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

// FollowService defines the follow use cases.
type FollowService interface {
	ToggleFollow(ctx context.Context, actorID, clubID string) (*models.FollowStatus, error)
	ListFollows(ctx context.Context, actorID string, p models.Pagination) (*models.PagedResult[models.ClubFollow], error)
	FollowersCount(ctx context.Context, clubID string) (int64, error)
	IsFollowing(ctx context.Context, actorID string, clubIDs []string) (map[string]bool, error)
}

// ClubCounter reads the denormalized follower count of a club.
type ClubCounter interface {
	GetFollowersCount(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type RetryPolicy struct {
	// MaxAttempts is the total number of toggle attempts, including the first.
	MaxAttempts int
	// BaseDelay is scaled by the attempt number and jittered.
	BaseDelay time.Duration
}

type followService struct {
	follows repositories.FollowRepository
	clubs   ClubCounter
	cache   cache.FollowerCountCache
	retry   RetryPolicy
}

// NewFollowService wires the follow use cases. countCache may be nil.
func NewFollowService(follows repositories.FollowRepository, clubs ClubCounter, countCache cache.FollowerCountCache, retry RetryPolicy) FollowService {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &followService{
		follows: follows,
		clubs:   clubs,
		cache:   countCache,
		retry:   retry,
	}
}

func parseClubID(clubID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(clubID)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(ErrInvalidInput, "malformed club id %q", clubID)
	}
	return oid, nil
}

// ToggleFollow flips the follow edge between actorID and clubID and returns
// the resulting state. Write conflicts re-run the whole transaction up to
// the retry budget.
func (s *followService) ToggleFollow(ctx context.Context, actorID, clubID string) (*models.FollowStatus, error) {
	l := logger.Ctx(ctx)

	if actorID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "missing actor id")
	}
	oid, err := parseClubID(clubID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		status, err := s.follows.ToggleFollow(ctx, actorID, oid)
		if err == nil {
			s.invalidateCount(ctx, oid.Hex())
			return status, nil
		}

		switch {
		case errors.Is(err, repositories.ErrClubNotFound):
			return nil, errors.Wrapf(ErrNotFound, "club %s", clubID)
		case errors.Is(err, repositories.ErrTransientConflict):
			if attempt >= s.retry.MaxAttempts {
				l.Warn().Err(err).
					Str(logger.FieldActorID, actorID).
					Str(logger.FieldClubID, clubID).
					Int("attempts", attempt).
					Msg("follow toggle gave up on write conflicts")
				return nil, storageFault(errors.Wrapf(err, "gave up after %d attempts", attempt))
			}
			l.Debug().Err(err).Int("attempt", attempt).Msg("follow toggle conflict, retrying")
			if err := s.wait(ctx, attempt); err != nil {
				return nil, storageFault(err)
			}
		default:
			l.Error().Err(err).
				Str(logger.FieldActorID, actorID).
				Str(logger.FieldClubID, clubID).
				Msg("follow toggle failed")
			return nil, storageFault(err)
		}
	}
}

func (s *followService) wait(ctx context.Context, attempt int) error {
	if s.retry.BaseDelay <= 0 {
		return ctx.Err()
	}
	d := s.retry.BaseDelay * time.Duration(attempt)
	d += time.Duration(rand.Int63n(int64(s.retry.BaseDelay)))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *followService) invalidateCount(ctx context.Context, clubID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFollowersCount(ctx, clubID); err != nil {
		l := logger.Ctx(ctx)
		l.Warn().Err(err).Str(logger.FieldClubID, clubID).Msg("failed to invalidate cached follower count")
	}
}

// ListFollows returns one page of actorID's follow edges. The total and the
// page are read independently and may disagree under concurrent toggles.
func (s *followService) ListFollows(ctx context.Context, actorID string, p models.Pagination) (*models.PagedResult[models.ClubFollow], error) {
	if actorID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "missing actor id")
	}
	if p.Page < 1 || p.Limit < 1 {
		return nil, errors.Wrapf(ErrInvalidInput, "page and limit must be positive, got page=%d limit=%d", p.Page, p.Limit)
	}
	if p.SortBy != "created_at" && p.SortBy != "updated_at" {
		return nil, errors.Wrapf(ErrInvalidInput, "unsupported sort field %q", p.SortBy)
	}

	var (
		total   int64
		follows []models.ClubFollow
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.follows.CountFollowsByUser(gCtx, actorID)
		return err
	})
	g.Go(func() error {
		var err error
		follows, err = s.follows.ListFollowsByUser(gCtx, actorID, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageFault(err)
	}

	return &models.PagedResult[models.ClubFollow]{
		Meta: models.NewPageMeta(p, total),
		Data: follows,
	}, nil
}

// FollowersCount serves the club's follower count from the cache, falling
// back to the club document.
func (s *followService) FollowersCount(ctx context.Context, clubID string) (int64, error) {
	l := logger.Ctx(ctx)

	oid, err := parseClubID(clubID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		count, found, err := s.cache.GetFollowersCount(ctx, oid.Hex())
		if err != nil {
			l.Warn().Err(err).Str(logger.FieldClubID, clubID).Msg("follower count cache read failed, falling back to mongo")
		}
		if found {
			return count, nil
		}
	}

	count, err := s.clubs.GetFollowersCount(ctx, oid)
	if err != nil {
		if errors.Is(err, repositories.ErrClubNotFound) {
			return 0, errors.Wrapf(ErrNotFound, "club %s", clubID)
		}
		return 0, storageFault(err)
	}

	if s.cache != nil {
		if err := s.cache.SetFollowersCount(ctx, oid.Hex(), count); err != nil {
			l.Warn().Err(err).Str(logger.FieldClubID, clubID).Msg("failed to cache follower count")
		}
	}
	return count, nil
}

// IsFollowing reports, for each club id, whether actorID follows it.
func (s *followService) IsFollowing(ctx context.Context, actorID string, clubIDs []string) (map[string]bool, error) {
	if actorID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "missing actor id")
	}

	result := make(map[string]bool, len(clubIDs))
	oids := make([]primitive.ObjectID, 0, len(clubIDs))
	for _, id := range clubIDs {
		oid, err := parseClubID(id)
		if err != nil {
			return nil, err
		}
		result[oid.Hex()] = false
		oids = append(oids, oid)
	}

	followed, err := s.follows.GetFollowedClubIDs(ctx, actorID, oids)
	if err != nil {
		return nil, storageFault(err)
	}
	for _, oid := range followed {
		result[oid.Hex()] = true
	}
	return result, nil
}

var _ FollowService = (*followService)(nil)

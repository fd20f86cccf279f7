package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bocado/internal/catalog"
	"bocado/internal/hybrid"
	"bocado/internal/platform/logger"
	"bocado/pkg/types"
)

// Quality floor for a usable snapshot.
const (
	minSnapshotUsers   = 2
	minSnapshotDishes  = 3
	minSnapshotRatings = 5
)

// snapshot is one immutable view of the rating data. Everything derived from
// it (tables, exclusion sets) is computed at load time so concurrent requests
// share it without locking.
type snapshot struct {
	loadedAt time.Time

	dishRatings  []types.Rating
	venueRatings []types.Rating
	dishVenue    map[string]string

	// table holds hybrid scores built with the service-level alpha.
	table types.RatingTable

	// rated maps userID -> set of dish ids from the raw dish ratings;
	// it backs the exclusion set regardless of sparsity filtering.
	rated map[string]map[string]struct{}

	users   int
	dishes  int
	ratings int
}

func (s *snapshot) ratedBy(userID string) map[string]struct{} {
	set := make(map[string]struct{}, len(s.rated[userID]))
	for dish := range s.rated[userID] {
		set[dish] = struct{}{}
	}
	return set
}

// snapshotHolder guards the shared snapshot with a TTL. Refreshes past the
// boundary are collapsed into one load via singleflight; readers that lose
// the race keep the previous snapshot (last-writer-wins staleness).
type snapshotHolder struct {
	source catalog.Source
	loader *hybrid.Loader
	ttl    time.Duration
	log    *logger.Logger

	group singleflight.Group

	mu  sync.RWMutex
	cur *snapshot
}

func newSnapshotHolder(source catalog.Source, loader *hybrid.Loader, ttl time.Duration, log *logger.Logger) *snapshotHolder {
	return &snapshotHolder{
		source: source,
		loader: loader,
		ttl:    ttl,
		log:    log,
	}
}

func (h *snapshotHolder) current() *snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

func (h *snapshotHolder) age() time.Duration {
	cur := h.current()
	if cur == nil {
		return -1
	}
	return time.Since(cur.loadedAt)
}

// get returns a fresh-enough snapshot, reloading from the source when stale.
func (h *snapshotHolder) get(ctx context.Context) (*snapshot, error) {
	if cur := h.current(); cur != nil && time.Since(cur.loadedAt) < h.ttl {
		return cur, nil
	}

	v, err, _ := h.group.Do("snapshot", func() (interface{}, error) {
		// Another waiter may have refreshed while this one queued.
		if cur := h.current(); cur != nil && time.Since(cur.loadedAt) < h.ttl {
			return cur, nil
		}
		snap, err := h.load(ctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.cur = snap
		h.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		// A stale snapshot beats no snapshot.
		if cur := h.current(); cur != nil {
			h.log.Warn("snapshot refresh failed, serving stale data",
				"age", time.Since(cur.loadedAt), "error", err)
			return cur, nil
		}
		return nil, err
	}
	return v.(*snapshot), nil
}

func (h *snapshotHolder) load(ctx context.Context) (*snapshot, error) {
	dishRatings, err := h.source.DishRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dish ratings: %w", err)
	}
	venueRatings, err := h.source.VenueRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading venue ratings: %w", err)
	}
	dishVenue, err := h.source.DishVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dish-venue mapping: %w", err)
	}

	if len(dishRatings) == 0 {
		return nil, ErrDataUnavailable
	}

	userSet := make(map[string]struct{})
	dishSet := make(map[string]struct{})
	rated := make(map[string]map[string]struct{})
	outOfRange := 0
	for _, r := range dishRatings {
		userSet[r.UserID] = struct{}{}
		dishSet[r.ItemID] = struct{}{}
		if r.Value < types.MinRating || r.Value > types.MaxRating {
			outOfRange++
		}
		set := rated[r.UserID]
		if set == nil {
			set = make(map[string]struct{})
			rated[r.UserID] = set
		}
		set[r.ItemID] = struct{}{}
	}
	if outOfRange > 0 {
		// Logged, not dropped: the loader clamps them into range.
		h.log.Warn("ratings outside valid range", "count", outOfRange)
	}

	if len(userSet) < minSnapshotUsers || len(dishSet) < minSnapshotDishes || len(dishRatings) < minSnapshotRatings {
		return nil, fmt.Errorf("%w: users=%d dishes=%d ratings=%d",
			ErrDataQualityTooLow, len(userSet), len(dishSet), len(dishRatings))
	}

	scores := h.loader.Load(dishRatings, venueRatings, dishVenue)
	snap := &snapshot{
		loadedAt:     time.Now(),
		dishRatings:  dishRatings,
		venueRatings: venueRatings,
		dishVenue:    dishVenue,
		table:        hybrid.Table(scores),
		rated:        rated,
		users:        len(userSet),
		dishes:       len(dishSet),
		ratings:      len(dishRatings),
	}
	h.log.Info("rating snapshot refreshed",
		"users", snap.users, "dishes", snap.dishes, "ratings", snap.ratings)
	return snap, nil
}

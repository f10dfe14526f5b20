package service

import (
	"context"
	"time"

	"pixelcanvas/internal/domain"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	stats StatsStore
	users UserStore
	clock clockwork.Clock
}

func NewLeaderboardService(stats StatsStore, users UserStore, clock clockwork.Clock) *LeaderboardService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LeaderboardService{stats: stats, users: users, clock: clock}
}

// ClampLimit applies the default and the upper bound to a requested size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Top is TopN for the current bucket of period.
func (s *LeaderboardService) Top(ctx context.Context, period domain.Period, limit int) ([]domain.LeaderboardEntry, error) {
	return s.TopN(ctx, period, limit, s.clock.Now())
}

// TopN returns the highest counts of the bucket containing asOf, count desc then uid asc.
// Entries whose user has no display name are labelled with their uid.
func (s *LeaderboardService) TopN(ctx context.Context, period domain.Period, limit int, asOf time.Time) ([]domain.LeaderboardEntry, error) {
	counts, err := s.stats.TopCounts(ctx, domain.BucketFor(period, asOf), ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	out := make([]domain.LeaderboardEntry, 0, len(counts))
	if len(counts) == 0 {
		return out, nil
	}

	uids := make([]string, len(counts))
	for i, c := range counts {
		uids[i] = c.UID
	}
	names, err := s.users.DisplayNames(ctx, uids)
	if err != nil {
		return nil, err
	}

	for _, c := range counts {
		name := names[c.UID]
		if name == "" {
			name = c.UID
		}
		out = append(out, domain.LeaderboardEntry{UID: c.UID, Name: name, Count: c.Count})
	}
	return out, nil
}

// Rank returns uid's 1-based position in the current bucket, 0 when it has no placements there.
func (s *LeaderboardService) Rank(ctx context.Context, period domain.Period, uid string) (int, int64, error) {
	return s.stats.RankOf(ctx, domain.BucketFor(period, s.clock.Now()), uid)
}

package domain

import (
	"fmt"
	"sort"
	"time"
)

// Period is a calendar granularity for aggregate buckets.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every period a placement is counted in.
var Periods = []Period{PeriodDay, PeriodMonth, PeriodYear}

// Bucket identifies one aggregate record.
type Bucket struct {
	Period   Period `json:"period"`
	PeriodID string `json:"periodId"`
}

// BucketFor truncates t (in UTC) to the period.
func BucketFor(p Period, t time.Time) Bucket {
	t = t.UTC()
	var id string
	switch p {
	case PeriodDay:
		id = t.Format("2006-01-02")
	case PeriodMonth:
		id = t.Format("2006-01")
	default:
		id = t.Format("2006")
	}
	return Bucket{Period: p, PeriodID: id}
}

// BucketsFor returns the day, month and year buckets of t.
func BucketsFor(t time.Time) []Bucket {
	out := make([]Bucket, 0, len(Periods))
	for _, p := range Periods {
		out = append(out, BucketFor(p, t))
	}
	return out
}

// ParseRange maps the public leaderboard range names to periods.
func ParseRange(s string) (Period, error) {
	switch s {
	case "", "today", "day":
		return PeriodDay, nil
	case "month":
		return PeriodMonth, nil
	case "year":
		return PeriodYear, nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// BucketCount is one uid entry of a bucket.
type BucketCount struct {
	UID   string `json:"uid"`
	Count int64  `json:"count"`
}

// RankCounts orders entries by count descending, uid ascending, and truncates to limit.
func RankCounts(counts map[string]int64, limit int) []BucketCount {
	out := make([]BucketCount, 0, len(counts))
	for uid, n := range counts {
		out = append(out, BucketCount{UID: uid, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UID < out[j].UID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LeaderboardEntry is a ranked bucket entry with a resolved display name.
type LeaderboardEntry struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CanvasStats is the moderation overview of the board.
type CanvasStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	BannedUsers       int64 `json:"bannedUsers"`
	PaintedPixels     int64 `json:"paintedPixels"`
	PlacementsAllTime int64 `json:"placementsAllTime"`
	PlacementsToday   int64 `json:"placementsToday"`
	ActiveUsersToday  int64 `json:"activeUsersToday"`
	ChatMessages      int64 `json:"chatMessages"`
	FreePixelsHeld    int64 `json:"freePixelsHeld"`
	PlayPointsHeld    int64 `json:"playPointsHeld"`
}

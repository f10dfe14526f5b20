package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"

	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps every table in process memory behind one mutex.
// It backs STORAGE_DRIVER=memory and the service tests.
type MemoryStore struct {
	mu    sync.Mutex
	clock clockwork.Clock

	users  map[string]*domain.User
	pixels map[grid.Point]domain.Pixel
	stats  map[domain.Bucket]map[string]int64
	chats  []domain.ChatMessage
	audit  []*domain.AuditLog
	nextID int64
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:  clock,
		users:  make(map[string]*domain.User),
		pixels: make(map[grid.Point]domain.Pixel),
		stats:  make(map[domain.Bucket]map[string]int64),
	}
}

// Users

func (s *MemoryStore) CreateIfMissing(_ context.Context, u *domain.User) (*domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.UID]; ok {
		return existing.Clone(), false, nil
	}
	stored := u.Clone()
	now := s.clock.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.NameUpdatedAt.IsZero() {
		stored.NameUpdatedAt = now
	}
	if stored.Role == "" {
		stored.Role = domain.RoleUser
	}
	if stored.ColorPack == "" {
		stored.ColorPack = domain.ColorPackFree
	}
	s.users[stored.UID] = stored
	return stored.Clone(), true, nil
}

func (s *MemoryStore) GetByUID(_ context.Context, uid string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if customerID != "" && u.StripeCustomerID == customerID {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) DisplayNames(_ context.Context, uids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]string, len(uids))
	for _, uid := range uids {
		if u, ok := s.users[uid]; ok {
			names[uid] = u.DisplayName
		}
	}
	return names, nil
}

func (s *MemoryStore) UpdateBio(_ context.Context, uid, bio string) error {
	return s.mutateUser(uid, func(u *domain.User) { u.Bio = bio })
}

func (s *MemoryStore) UpdateProfile(_ context.Context, uid, displayName, avatarURL string) error {
	now := s.clock.Now()
	return s.mutateUser(uid, func(u *domain.User) {
		if displayName != "" {
			u.DisplayName = displayName
			u.NameUpdatedAt = now
		}
		if avatarURL != "" {
			u.AvatarURL = avatarURL
		}
	})
}

func (s *MemoryStore) SearchByName(_ context.Context, prefix string, limit int) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix = strings.ToLower(prefix)
	var res []*domain.User
	for _, u := range s.users {
		if strings.HasPrefix(strings.ToLower(u.DisplayName), prefix) {
			res = append(res, u.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DisplayName != res[j].DisplayName {
			return res[i].DisplayName < res[j].DisplayName
		}
		return res[i].UID < res[j].UID
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[uid]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, uid)
	return nil
}

func (s *MemoryStore) SetStripeCustomerID(_ context.Context, uid, customerID string) error {
	return s.mutateUser(uid, func(u *domain.User) { u.StripeCustomerID = customerID })
}

func (s *MemoryStore) ApplyEntitlement(_ context.Context, uid string, ent domain.Entitlement) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	ent.Apply(u)
	return u.Clone(), nil
}

func (s *MemoryStore) mutateUser(uid string, fn func(u *domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	return nil
}

// Pixels

// ApplyPlacement admits against a copy of the user so a refusal leaves no trace.
func (s *MemoryStore) ApplyPlacement(_ context.Context, req domain.PlacementRequest, admit domain.AdmitFunc) (*domain.PlacementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[req.UID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	source, err := admit(stored.Clone())
	if err != nil {
		return nil, err
	}
	if !source.Valid() {
		return nil, fmt.Errorf("unknown balance source %q", source)
	}

	px := domain.Pixel{
		X:         req.X,
		Y:         req.Y,
		Color:     req.Color,
		Owner:     stored.UID,
		OwnerName: stored.SnapshotName(),
		FilledAt:  s.clock.Now(),
	}
	s.pixels[grid.Point{X: req.X, Y: req.Y}] = px

	stored.Adjust(source, -1)
	stored.PixelsDrawnAllTime++
	stored.LastPlacedAt = req.Now.UnixMilli()

	for _, b := range domain.BucketsFor(req.Now) {
		counts, ok := s.stats[b]
		if !ok {
			counts = make(map[string]int64)
			s.stats[b] = counts
		}
		counts[stored.UID]++
	}

	return &domain.PlacementResult{Pixel: px, Source: source, User: stored.Clone()}, nil
}

func (s *MemoryStore) PixelsInBox(_ context.Context, box grid.Box, limit int) ([]domain.Pixel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Pixel, 0)
	for p, px := range s.pixels {
		if box.Contains(p) {
			out = append(out, px)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats

func (s *MemoryStore) TopCounts(_ context.Context, b domain.Bucket, limit int) ([]domain.BucketCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.RankCounts(s.stats[b], limit), nil
}

func (s *MemoryStore) RankOf(_ context.Context, b domain.Bucket, uid string) (int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := s.stats[b]
	if _, ok := counts[uid]; !ok {
		return 0, 0, nil
	}
	for i, c := range domain.RankCounts(counts, -1) {
		if c.UID == uid {
			return i + 1, c.Count, nil
		}
	}
	return 0, 0, nil
}

func (s *MemoryStore) CanvasStats(_ context.Context, today domain.Bucket) (*domain.CanvasStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &domain.CanvasStats{
		TotalUsers:    int64(len(s.users)),
		PaintedPixels: int64(len(s.pixels)),
		ChatMessages:  int64(len(s.chats)),
	}
	for _, u := range s.users {
		if u.IsBanned {
			out.BannedUsers++
		}
		out.PlacementsAllTime += u.PixelsDrawnAllTime
		out.FreePixelsHeld += u.FreePixels
		out.PlayPointsHeld += u.PlayPoints
	}
	for _, n := range s.stats[today] {
		out.PlacementsToday += n
		out.ActiveUsersToday++
	}
	return out, nil
}

// Chat

func (s *MemoryStore) CreateMessage(_ context.Context, m *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.CreatedAt = s.clock.Now()
	s.chats = append(s.chats, *m)
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.chats) - limit
	if start < 0 {
		start = 0
	}
	return append([]domain.ChatMessage{}, s.chats[start:]...), nil
}

// Audit

func (s *MemoryStore) CreateAuditLog(_ context.Context, log *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	log.ID = s.nextID
	log.CreatedAt = s.clock.Now()
	entry := *log
	s.audit = append(s.audit, &entry)
	return nil
}

func (s *MemoryStore) AuditLogsByUID(_ context.Context, uid string, limit int) ([]*domain.AuditLog, error) {
	return s.filterAudit(limit, func(l *domain.AuditLog) bool { return l.UID == uid }), nil
}

func (s *MemoryStore) RecentAuditLogs(_ context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return s.filterAudit(limit, func(l *domain.AuditLog) bool { return category == "" || l.Category == category }), nil
}

func (s *MemoryStore) filterAudit(limit int, keep func(*domain.AuditLog) bool) []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.audit[i]) {
			entry := *s.audit[i]
			out = append(out, &entry)
		}
	}
	return out
}

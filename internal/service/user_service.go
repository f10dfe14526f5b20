package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	MaxBioLength         = 300
	MaxDisplayNameLength = 40
	SearchLimit          = 20
)

// ProfileUpdate carries the optional fields of a profile change. Empty fields are kept.
type ProfileUpdate struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type UserService struct {
	repo       UserStore
	audit      *AuditService
	freePixels int64
}

func NewUserService(repo UserStore, audit *AuditService, freePixels int64) *UserService {
	if freePixels <= 0 {
		freePixels = domain.DefaultFreePixels
	}
	return &UserService{repo: repo, audit: audit, freePixels: freePixels}
}

// Provision creates the caller's user record on first contact and returns the stored record.
// Calling it again never resets counters.
func (s *UserService) Provision(ctx context.Context, id Identity, p ProfileUpdate) (*domain.User, error) {
	if id.UID == "" {
		return nil, domain.NewValidationError("uid", "required")
	}

	name := firstNonEmpty(strings.TrimSpace(p.DisplayName), id.Name, "Anon")
	code, err := uniqueCode(id.UID)
	if err != nil {
		return nil, err
	}

	u, created, err := s.repo.CreateIfMissing(ctx, &domain.User{
		UID:         id.UID,
		DisplayName: truncate(name, MaxDisplayNameLength),
		Email:       id.Email,
		AvatarURL:   p.AvatarURL,
		UniqueCode:  code,
		FreePixels:  s.freePixels,
		ColorPack:   domain.ColorPackFree,
		Role:        domain.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("user provisioned", "uid", u.UID, "unique_code", u.UniqueCode)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, uid string) (*domain.User, error) {
	return s.repo.GetByUID(ctx, uid)
}

func (s *UserService) Stats(ctx context.Context, uid string) (domain.UserStats, error) {
	u, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return domain.UserStats{}, err
	}
	return u.Stats(), nil
}

// UpdateBio changes the caller's own bio.
func (s *UserService) UpdateBio(ctx context.Context, caller, uid, bio string) error {
	if caller != uid {
		return domain.ErrForbidden
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return domain.NewValidationError("bio", "too long")
	}
	return s.repo.UpdateBio(ctx, uid, bio)
}

// UpdateProfile changes the caller's own display name and avatar.
func (s *UserService) UpdateProfile(ctx context.Context, caller, uid string, p ProfileUpdate) error {
	if caller != uid {
		return domain.ErrForbidden
	}
	name := strings.TrimSpace(p.DisplayName)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return domain.NewValidationError("displayName", "too long")
	}
	return s.repo.UpdateProfile(ctx, uid, name, strings.TrimSpace(p.AvatarURL))
}

// Search returns users whose display name starts with q, case-insensitively.
func (s *UserService) Search(ctx context.Context, q string) ([]*domain.User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*domain.User{}, nil
	}
	users, err := s.repo.SearchByName(ctx, q, SearchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

// Delete removes uid. Only admins may do this.
func (s *UserService) Delete(ctx context.Context, caller, uid string) error {
	requester, err := s.repo.GetByUID(ctx, caller)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !requester.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, uid); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.LogAdminAction(ctx, caller, domain.AuditActionAdminDeleteUser, uid, nil)
	}
	logger.Info("user deleted", "uid", uid, "by", caller)
	return nil
}

// uniqueCode is the first four characters of uid upper-cased, a dash and four digits.
func uniqueCode(uid string) (string, error) {
	prefix := uid
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	digits, err := gonanoid.Generate("123456789", 4)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(prefix) + "-" + digits, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

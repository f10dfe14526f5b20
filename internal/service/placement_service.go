package service

import (
	"context"
	"errors"
	"time"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"
	"pixelcanvas/internal/logger"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCooldown is the minimum interval between two placements of one user.
const DefaultCooldown = 10 * time.Second

var placementsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pixel_placements_total",
		Help: "Pixel placement attempts by outcome",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(placementsTotal)
}

// PlaceResult is returned to the caller of a successful placement.
type PlaceResult struct {
	Pixel         domain.Pixel         `json:"pixel"`
	CooldownUntil int64                `json:"cooldownUntil"`
	Source        domain.BalanceSource `json:"source"`
	User          *domain.User         `json:"-"`
}

// PlacementService admits pixel placements.
type PlacementService struct {
	pixels   PixelStore
	hub      Broadcaster
	clock    clockwork.Clock
	cooldown time.Duration
}

func NewPlacementService(pixels PixelStore, hub Broadcaster, clock clockwork.Clock, cooldown time.Duration) *PlacementService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &PlacementService{pixels: pixels, hub: hub, clock: clock, cooldown: cooldown}
}

func (s *PlacementService) Cooldown() time.Duration {
	return s.cooldown
}

// Place validates the request, commits it atomically and broadcasts the new pixel once.
func (s *PlacementService) Place(ctx context.Context, uid string, x, y int, color string) (*PlaceResult, error) {
	if err := validatePlacement(uid, x, y, color); err != nil {
		placementsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	req := domain.PlacementRequest{UID: uid, X: x, Y: y, Color: color, Now: s.clock.Now()}

	res, err := s.pixels.ApplyPlacement(ctx, req, s.admit(req))
	if err != nil {
		placementsTotal.WithLabelValues(placementOutcome(err)).Inc()
		var cd *domain.CooldownError
		if errors.As(err, &cd) {
			logger.Debug("placement in cooldown", "uid", uid, "wait_ms", cd.WaitMs)
		}
		return nil, err
	}
	placementsTotal.WithLabelValues("ok").Inc()

	s.hub.PublishPixel(res.Pixel)

	return &PlaceResult{
		Pixel:         res.Pixel,
		CooldownUntil: req.Now.UnixMilli() + s.cooldown.Milliseconds(),
		Source:        res.Source,
		User:          res.User,
	}, nil
}

// admit runs inside the store's transaction against the locked user row.
// Checks run cooldown first, then balance, then color lock.
func (s *PlacementService) admit(req domain.PlacementRequest) domain.AdmitFunc {
	cooldownMs := s.cooldown.Milliseconds()
	nowMs := req.Now.UnixMilli()

	return func(u *domain.User) (domain.BalanceSource, error) {
		// lastPlacedAt == 0 means the user never placed
		if u.LastPlacedAt > 0 {
			if elapsed := nowMs - u.LastPlacedAt; elapsed < cooldownMs {
				return "", &domain.CooldownError{WaitMs: cooldownMs - elapsed}
			}
		}

		src, ok := u.NextSource()
		if !ok {
			return "", domain.ErrInsufficientBalance
		}

		if !u.ColorAllowed(req.Color, req.Now) {
			return "", domain.ErrColorLocked
		}
		return src, nil
	}
}

func validatePlacement(uid string, x, y int, color string) error {
	switch {
	case uid == "":
		return domain.NewValidationError("uid", "required")
	case !grid.InBounds(x):
		return domain.NewValidationError("x", "out of bounds")
	case !grid.InBounds(y):
		return domain.NewValidationError("y", "out of bounds")
	case !grid.ValidColor(color):
		return domain.NewValidationError("color", "invalid color")
	}
	return nil
}

func placementOutcome(err error) string {
	var (
		cd *domain.CooldownError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &cd):
		return "cooldown"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrColorLocked):
		return "color_locked"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.As(err, &ve):
		return "invalid"
	default:
		return "error"
	}
}

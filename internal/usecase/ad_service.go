package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

// ServedAd is an ad as returned to clients, tagged with the serving zone.
type ServedAd struct {
	ID               string
	VideoURL         string
	AvailabilityZone string
}

// ZoneResolver reports the availability zone of the serving node.
type ZoneResolver interface {
	AvailabilityZone(ctx context.Context) (string, error)
}

// AdService defines the interface for ad request operations.
type AdService interface {
	// NextAd returns the next ad for country and lang in the current UTC hour.
	// Returns ErrNoAdsAvailable when the bucket is empty.
	NextAd(ctx context.Context, country, lang string) (*ServedAd, error)
}

type adService struct {
	rotation RotationService
	zones    ZoneResolver
	now      func() time.Time
}

// NewAdService creates a new AdService instance.
// zones may be nil, in which case ads are served without a zone.
func NewAdService(rotation RotationService, zones ZoneResolver) AdService {
	return newAdServiceWithClock(rotation, zones, time.Now)
}

// newAdServiceWithClock allows tests to pin the serving hour.
func newAdServiceWithClock(rotation RotationService, zones ZoneResolver, now func() time.Time) *adService {
	return &adService{
		rotation: rotation,
		zones:    zones,
		now:      now,
	}
}

// NextAd derives the bucket prefix and serves from it.
func (s *adService) NextAd(ctx context.Context, country, lang string) (*ServedAd, error) {
	prefix, err := model.NewPrefix(country, lang, s.now())
	if err != nil {
		return nil, err
	}

	ad, err := s.rotation.Serve(ctx, prefix.String())
	if err != nil {
		return nil, err
	}

	return &ServedAd{
		ID:               ad.ID,
		VideoURL:         ad.VideoURL,
		AvailabilityZone: s.availabilityZone(ctx),
	}, nil
}

func (s *adService) availabilityZone(ctx context.Context) string {
	if s.zones == nil {
		return ""
	}
	zone, err := s.zones.AvailabilityZone(ctx)
	if err != nil {
		// Non-critical: the ad is still served without the zone.
		slog.Warn("failed to resolve availability zone",
			"error", err,
		)
		return ""
	}
	return zone
}

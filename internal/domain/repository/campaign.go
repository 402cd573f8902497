package repository

import (
	"context"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

// CampaignRepository is a catalogue of campaigns to publish to the bulk store.
type CampaignRepository interface {
	// List returns every campaign ordered by ID.
	List(ctx context.Context) ([]model.Campaign, error)

	// Save inserts campaigns, replacing any with the same ID.
	Save(ctx context.Context, campaigns []model.Campaign) error
}

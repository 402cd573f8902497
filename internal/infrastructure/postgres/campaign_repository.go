package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	db DBTX
}

// NewCampaignRepository creates a new CampaignRepository instance.
func NewCampaignRepository(db DBTX) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// EnsureSchema creates the campaigns table when it does not exist.
func (r *CampaignRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS campaigns (
			id         TEXT PRIMARY KEY,
			video_url  TEXT NOT NULL,
			country    TEXT NOT NULL,
			lang       TEXT NOT NULL,
			start_hour SMALLINT NOT NULL CHECK (start_hour BETWEEN 0 AND 23),
			end_hour   SMALLINT NOT NULL CHECK (end_hour BETWEEN 0 AND 23)
		)
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create campaigns table: %w", err)
	}
	return nil
}

// List returns every campaign ordered by ID.
func (r *CampaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	const query = `
		SELECT id, video_url, country, lang, start_hour, end_hour
		FROM campaigns
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(
			&c.ID,
			&c.VideoURL,
			&c.Country,
			&c.Lang,
			&c.StartHour,
			&c.EndHour,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// Save upserts each campaign by ID.
func (r *CampaignRepository) Save(ctx context.Context, campaigns []model.Campaign) error {
	const query = `
		INSERT INTO campaigns (id, video_url, country, lang, start_hour, end_hour)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET video_url = EXCLUDED.video_url,
			country = EXCLUDED.country,
			lang = EXCLUDED.lang,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour
	`

	for _, c := range campaigns {
		if _, err := r.db.Exec(ctx, query,
			c.ID,
			c.VideoURL,
			c.Country,
			c.Lang,
			c.StartHour,
			c.EndHour,
		); err != nil {
			return fmt.Errorf("failed to save campaign %s: %w", c.ID, err)
		}
	}

	return nil
}

// Compile-time verification that CampaignRepository implements repository.CampaignRepository.
var _ repository.CampaignRepository = (*CampaignRepository)(nil)

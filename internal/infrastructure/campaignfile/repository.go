package campaignfile

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"slices"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
)

// Repository implements repository.CampaignRepository on a single campaign file.
// It is not safe for concurrent writers.
type Repository struct {
	path string
}

// Compile-time verification that Repository implements repository.CampaignRepository.
var _ repository.CampaignRepository = (*Repository)(nil)

// NewRepository creates a Repository backed by the file at path.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// List returns the campaigns in the file ordered by ID.
func (r *Repository) List(ctx context.Context) ([]model.Campaign, error) {
	campaigns, err := Read(r.path)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(campaigns, func(a, b model.Campaign) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return campaigns, nil
}

// Save merges campaigns into the file, replacing entries with the same ID.
// A missing file is created.
func (r *Repository) Save(ctx context.Context, campaigns []model.Campaign) error {
	existing, err := r.List(ctx)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	index := make(map[string]int, len(existing))
	for i, c := range existing {
		index[c.ID] = i
	}
	for _, c := range campaigns {
		if i, ok := index[c.ID]; ok {
			existing[i] = c
			continue
		}
		index[c.ID] = len(existing)
		existing = append(existing, c)
	}

	slices.SortStableFunc(existing, func(a, b model.Campaign) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return Write(r.path, existing)
}

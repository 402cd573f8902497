package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

var campaignColumns = []string{"id", "video_url", "country", "lang", "start_hour", "end_hour"}

func TestCampaignRepository_List(t *testing.T) {
	tests := []struct {
		name    string
		mockFn  func(mock pgxmock.PgxPoolIface)
		want    []model.Campaign
		wantErr bool
	}{
		{
			name: "returns campaigns in order",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(campaignColumns).
					AddRow("a1", "https://v/a1", "us", "eng", 22, 2).
					AddRow("b2", "https://v/b2", "jp", "jpn", 5, 5)
				mock.ExpectQuery("SELECT .* FROM campaigns ORDER BY id").
					WillReturnRows(rows)
			},
			want: []model.Campaign{
				{ID: "a1", VideoURL: "https://v/a1", Country: "us", Lang: "eng", StartHour: 22, EndHour: 2},
				{ID: "b2", VideoURL: "https://v/b2", Country: "jp", Lang: "jpn", StartHour: 5, EndHour: 5},
			},
		},
		{
			name: "returns empty slice when table is empty",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT .* FROM campaigns").
					WillReturnRows(pgxmock.NewRows(campaignColumns))
			},
			want: []model.Campaign{},
		},
		{
			name: "query error",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT .* FROM campaigns").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "row error",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(campaignColumns).
					AddRow("a1", "https://v/a1", "us", "eng", 1, 2).
					RowError(0, errors.New("row corrupted"))
				mock.ExpectQuery("SELECT .* FROM campaigns").
					WillReturnRows(rows)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer mock.Close()

			tt.mockFn(mock)

			repo := NewCampaignRepository(mock)
			got, err := repo.List(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Error("List() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("List() unexpected error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("List() = %+v, want %+v", got, tt.want)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestCampaignRepository_Save(t *testing.T) {
	campaigns := []model.Campaign{
		{ID: "a1", VideoURL: "https://v/a1", Country: "us", Lang: "eng", StartHour: 22, EndHour: 2},
		{ID: "b2", VideoURL: "https://v/b2", Country: "jp", Lang: "jpn", StartHour: 5, EndHour: 5},
	}

	tests := []struct {
		name    string
		mockFn  func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "upserts every campaign",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				for _, c := range campaigns {
					mock.ExpectExec("INSERT INTO campaigns").
						WithArgs(c.ID, c.VideoURL, c.Country, c.Lang, c.StartHour, c.EndHour).
						WillReturnResult(pgxmock.NewResult("INSERT", 1))
				}
			},
		},
		{
			name: "stops at first failure",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO campaigns").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("disk full"))
			},
			wantErr: errors.New("failed to save campaign a1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer mock.Close()

			tt.mockFn(mock)

			repo := NewCampaignRepository(mock)
			err = repo.Save(context.Background(), campaigns)

			if tt.wantErr != nil {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Errorf("Save() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() unexpected error = %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestCampaignRepository_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS campaigns").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	if err := NewCampaignRepository(mock).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HoursPerDay is the length of the rotation clock.
const HoursPerDay = 24

// KeyDelimiter separates the components of a bucket key.
const KeyDelimiter = "/"

var (
	ErrInvalidKey      = errors.New("invalid bucket key")
	ErrInvalidHour     = errors.New("hour must be within [0, 23]")
	ErrInvalidCampaign = errors.New("invalid campaign")
)

// Campaign is an advertiser-supplied ad with a daily availability window.
// StartHour is inclusive and EndHour exclusive; equal values mean all day.
type Campaign struct {
	ID        string `json:"id"`
	VideoURL  string `json:"video_url"`
	Country   string `json:"country"`
	Lang      string `json:"lang"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

// Ad is the served projection of a Campaign.
type Ad struct {
	ID       string `json:"id"`
	VideoURL string `json:"videoUrl"`
}

// Validate checks the fields required to expand and publish the campaign.
func (c Campaign) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidCampaign)
	case c.VideoURL == "":
		return fmt.Errorf("%w: video_url is required", ErrInvalidCampaign)
	case c.Country == "":
		return fmt.Errorf("%w: country is required", ErrInvalidCampaign)
	case c.Lang == "":
		return fmt.Errorf("%w: lang is required", ErrInvalidCampaign)
	}
	if !validHour(c.StartHour) {
		return fmt.Errorf("%w: start_hour %d: %w", ErrInvalidCampaign, c.StartHour, ErrInvalidHour)
	}
	if !validHour(c.EndHour) {
		return fmt.Errorf("%w: end_hour %d: %w", ErrInvalidCampaign, c.EndHour, ErrInvalidHour)
	}
	if strings.Contains(c.Country, KeyDelimiter) || strings.Contains(c.Lang, KeyDelimiter) ||
		strings.Contains(c.ID, KeyDelimiter) {
		return fmt.Errorf("%w: fields must not contain %q", ErrInvalidCampaign, KeyDelimiter)
	}
	return nil
}

// Ad returns the served form of the campaign.
func (c Campaign) Ad() Ad {
	return Ad{ID: c.ID, VideoURL: c.VideoURL}
}

// Keys expands the campaign's availability window into bucket keys.
//
// Windows that wrap past midnight produce [start, 24) followed by [0, end).
func (c Campaign) Keys() ([]string, error) {
	switch {
	case c.StartHour == c.EndHour:
		return ExpandHours(c, 0, HoursPerDay)
	case c.StartHour < c.EndHour:
		return ExpandHours(c, c.StartHour, c.EndHour)
	default:
		late, err := ExpandHours(c, c.StartHour, HoursPerDay)
		if err != nil {
			return nil, err
		}
		early, err := ExpandHours(c, 0, c.EndHour)
		if err != nil {
			return nil, err
		}
		return append(late, early...), nil
	}
}

// ExpandHours returns one bucket key per hour in [start, end), ascending.
func ExpandHours(c Campaign, start, end int) ([]string, error) {
	if start < 0 || start > HoursPerDay || end < 0 || end > HoursPerDay {
		return nil, fmt.Errorf("expand [%d, %d): %w", start, end, ErrInvalidHour)
	}
	if end <= start {
		return []string{}, nil
	}

	keys := make([]string, 0, end-start)
	for hour := start; hour < end; hour++ {
		keys = append(keys, BucketKey(c.Country, c.Lang, hour, c.ID))
	}
	return keys, nil
}

// BucketKey builds the lower-cased object key {country}/{lang}/{hour}/{id}.
func BucketKey(country, lang string, hour int, id string) string {
	return strings.ToLower(strings.Join([]string{country, lang, strconv.Itoa(hour), id}, KeyDelimiter))
}

func validHour(h int) bool {
	return h >= 0 && h < HoursPerDay
}

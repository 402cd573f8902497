package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prefix addresses one serving bucket: a (country, language, UTC hour) triple.
type Prefix struct {
	Country string
	Lang    string
	Hour    int
}

// NewPrefix builds the prefix for the UTC hour of t.
func NewPrefix(country, lang string, t time.Time) (Prefix, error) {
	p := Prefix{
		Country: strings.ToLower(strings.TrimSpace(country)),
		Lang:    strings.ToLower(strings.TrimSpace(lang)),
		Hour:    t.UTC().Hour(),
	}
	if err := p.validate(); err != nil {
		return Prefix{}, err
	}
	return p, nil
}

// ParsePrefix parses "country/lang/hour". Input is matched case-insensitively.
func ParsePrefix(s string) (Prefix, error) {
	parts := strings.Split(s, KeyDelimiter)
	if len(parts) != 3 {
		return Prefix{}, fmt.Errorf("%w: %q: want country/lang/hour", ErrInvalidKey, s)
	}

	hour, err := strconv.Atoi(parts[2])
	if err != nil {
		return Prefix{}, fmt.Errorf("%w: %q: hour %q is not an integer", ErrInvalidKey, s, parts[2])
	}

	p := Prefix{
		Country: strings.ToLower(parts[0]),
		Lang:    strings.ToLower(parts[1]),
		Hour:    hour,
	}
	if err := p.validate(); err != nil {
		return Prefix{}, err
	}
	return p, nil
}

func (p Prefix) validate() error {
	if p.Country == "" {
		return fmt.Errorf("%w: country is required", ErrInvalidKey)
	}
	if p.Lang == "" {
		return fmt.Errorf("%w: lang is required", ErrInvalidKey)
	}
	if strings.Contains(p.Country, KeyDelimiter) || strings.Contains(p.Lang, KeyDelimiter) {
		return fmt.Errorf("%w: components must not contain %q", ErrInvalidKey, KeyDelimiter)
	}
	if !validHour(p.Hour) {
		return fmt.Errorf("%w: hour %d: %w", ErrInvalidKey, p.Hour, ErrInvalidHour)
	}
	return nil
}

// String returns the cache key form, e.g. "us/eng/5".
func (p Prefix) String() string {
	return strings.ToLower(strings.Join([]string{p.Country, p.Lang, strconv.Itoa(p.Hour)}, KeyDelimiter))
}

// ListPrefix is the object-store listing prefix. The trailing delimiter keeps
// hour 1 from matching the keys of hours 10 through 19.
func (p Prefix) ListPrefix() string {
	return p.String() + KeyDelimiter
}

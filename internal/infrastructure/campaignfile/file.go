// Package campaignfile reads and writes batch campaign files of the form {"ads": [...]}.
package campaignfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

type document struct {
	Ads []model.Campaign `json:"ads"`
}

// Decode reads a campaign document from r.
func Decode(r io.Reader) ([]model.Campaign, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode campaign file: %w", err)
	}
	if doc.Ads == nil {
		doc.Ads = []model.Campaign{}
	}
	return doc.Ads, nil
}

// Encode writes campaigns to w as a campaign document.
func Encode(w io.Writer, campaigns []model.Campaign) error {
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Ads: campaigns}); err != nil {
		return fmt.Errorf("encode campaign file: %w", err)
	}
	return nil
}

// Read loads the campaign document at path.
func Read(path string) ([]model.Campaign, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open campaign file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Write replaces the file at path with a document holding campaigns.
func Write(path string, campaigns []model.Campaign) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create campaign file: %w", err)
	}

	if err := Encode(f, campaigns); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close campaign file: %w", err)
	}
	return nil
}

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hszk-dev/adrotate/internal/api/middleware"
	"github.com/hszk-dev/adrotate/internal/usecase"
)

const noAdTimeLayout = "2006-01-02 15:04:05"

type AdResponse struct {
	ID               string `json:"id"`
	VideoURL         string `json:"videoUrl"`
	AvailabilityZone string `json:"availability_zone"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// AdHandler handles ad request HTTP requests.
type AdHandler struct {
	svc usecase.AdService
	now func() time.Time
}

// NewAdHandler creates a new AdHandler.
func NewAdHandler(svc usecase.AdService) *AdHandler {
	return &AdHandler{svc: svc, now: time.Now}
}

// Request handles GET /ad_request?country=&lang=
func (h *AdHandler) Request(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	lang := r.URL.Query().Get("lang")

	ad, err := h.svc.NextAd(r.Context(), country, lang)
	if err != nil {
		if errors.Is(err, usecase.ErrNoAdsAvailable) {
			JSON(w, http.StatusOK, MessageResponse{
				Message: fmt.Sprintf("No ad available for country %q and language %q at %q",
					country, lang, h.now().UTC().Format(noAdTimeLayout)),
			})
			return
		}

		middleware.LoggerFromContext(r.Context()).Error("ad request failed",
			"country", country,
			"lang", lang,
			"error", err,
		)
		InternalError(w, err)
		return
	}

	JSON(w, http.StatusOK, AdResponse{
		ID:               ad.ID,
		VideoURL:         ad.VideoURL,
		AvailabilityZone: ad.AvailabilityZone,
	})
}

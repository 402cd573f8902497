package campaignfile

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

// SampleVideoURL is the video attached to every generated campaign.
const SampleVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// locale pairs an ISO 3166-1 alpha-2 country with its primary ISO 639-2 language.
type locale struct {
	country string
	lang    string
}

var locales = []locale{
	{"us", "eng"},
	{"gb", "eng"},
	{"ca", "eng"},
	{"au", "eng"},
	{"ie", "eng"},
	{"jp", "jpn"},
	{"kr", "kor"},
	{"cn", "zho"},
	{"tw", "zho"},
	{"de", "deu"},
	{"at", "deu"},
	{"fr", "fra"},
	{"be", "nld"},
	{"nl", "nld"},
	{"es", "spa"},
	{"mx", "spa"},
	{"ar", "spa"},
	{"br", "por"},
	{"pt", "por"},
	{"it", "ita"},
	{"ru", "rus"},
	{"pl", "pol"},
	{"se", "swe"},
	{"no", "nor"},
	{"fi", "fin"},
	{"tr", "tur"},
	{"in", "hin"},
	{"id", "ind"},
	{"th", "tha"},
	{"vn", "vie"},
}

// Generate returns n random campaigns drawn from a fixed locale table.
// Hours are uniform over [0, 23], so about one in 24 campaigns runs all day.
func Generate(r *rand.Rand, n int) []model.Campaign {
	campaigns := make([]model.Campaign, 0, n)
	for range n {
		loc := locales[r.IntN(len(locales))]
		campaigns = append(campaigns, model.Campaign{
			ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
			VideoURL:  SampleVideoURL,
			Country:   strings.ToUpper(loc.country),
			Lang:      loc.lang,
			StartHour: r.IntN(model.HoursPerDay),
			EndHour:   r.IntN(model.HoursPerDay),
		})
	}
	return campaigns
}

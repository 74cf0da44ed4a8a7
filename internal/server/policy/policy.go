// Package policy holds the subscription rules: the voice catalog and the
// predicates that gate section creation and voice choice. Everything here is
// pure; a nil subscription means the free plan.
package policy

import "github.com/readback/readback/internal/server/models"

// FreeSectionLimit is the number of sections a free account may hold.
const FreeSectionLimit = 10

var freeVoices = []models.Voice{
	{ID: "alloy", Name: "Alloy", Gender: "female"},
	{ID: "echo", Name: "Echo", Gender: "male"},
	{ID: "fable", Name: "Fable", Gender: "female"},
	{ID: "onyx", Name: "Onyx", Gender: "male"},
}

var premiumVoices = []models.Voice{
	{ID: "nova", Name: "Nova", Gender: "female", Premium: true},
	{ID: "shimmer", Name: "Shimmer", Gender: "female", Premium: true},
}

// IsPremium reports whether sub is an active premium plan.
func IsPremium(sub *models.Subscription) bool {
	return sub != nil && sub.PlanType == models.PlanPremium && sub.Status == models.StatusActive
}

// CanCreateSection reports whether an account holding currentCount sections
// may create another one.
func CanCreateSection(sub *models.Subscription, currentCount int) bool {
	return IsPremium(sub) || currentCount < FreeSectionLimit
}

// AvailableVoices returns the voices sub may use, free voices first.
func AvailableVoices(sub *models.Subscription) []models.Voice {
	out := make([]models.Voice, 0, len(freeVoices)+len(premiumVoices))
	out = append(out, freeVoices...)
	if IsPremium(sub) {
		out = append(out, premiumVoices...)
	}
	return out
}

// AllVoices returns the whole catalog.
func AllVoices() []models.Voice {
	out := make([]models.Voice, 0, len(freeVoices)+len(premiumVoices))
	out = append(out, freeVoices...)
	return append(out, premiumVoices...)
}

// LookupVoice finds a catalog voice by id.
func LookupVoice(id string) (models.Voice, bool) {
	for _, v := range AllVoices() {
		if v.ID == id {
			return v, true
		}
	}
	return models.Voice{}, false
}

// VoiceAllowed reports whether id is a catalog voice that sub may use.
func VoiceAllowed(sub *models.Subscription, id string) bool {
	v, ok := LookupVoice(id)
	if !ok {
		return false
	}
	return !v.Premium || IsPremium(sub)
}

package booking

import (
	"strings"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/crm"
)

// Urgency scoring weights. The score is bounded to [0,100]:
// emergency keywords contribute up to 40, the service type up to 30,
// and date proximity up to 30.
const (
	emergencyKeywordWeight = 40
	maxServiceTypeWeight   = 30
	maxDateProximityWeight = 30
)

var emergencyKeywords = []string{
	"gas leak", "carbon monoxide", "flood", "burst", "sewage",
	"sparks", "smoke", "burning", "no heat", "no power", "emergency",
}

var serviceTypeWeights = map[string]int{
	"emergency_repair": 30,
	"repair":           20,
	"diagnostic":       15,
	"installation":     10,
	"maintenance":      5,
	"inspection":       5,
}

// ScoreUrgency derives the appointment priority and a bounded urgency
// score from the problem text, service type, and how soon the requested
// date is.
func ScoreUrgency(problemText, serviceType string, requestedDate, now time.Time, isEmergency bool) (priority string, score int) {
	lower := strings.ToLower(problemText)

	hasEmergencyKeyword := false
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			hasEmergencyKeyword = true
			break
		}
	}
	if isEmergency || hasEmergencyKeyword {
		score += emergencyKeywordWeight
	}

	if w, ok := serviceTypeWeights[strings.ToLower(serviceType)]; ok {
		score += w
	} else if serviceType != "" {
		score += 10
	}

	score += dateProximityWeight(requestedDate, now)

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	switch {
	case isEmergency || hasEmergencyKeyword:
		priority = crm.PriorityEmergency
	case score >= 50:
		priority = crm.PriorityHigh
	default:
		priority = crm.PriorityNormal
	}
	return priority, score
}

func dateProximityWeight(requested, now time.Time) int {
	if requested.IsZero() {
		return 0
	}
	days := int(requested.Sub(now).Hours() / 24)
	switch {
	case days <= 0:
		return maxDateProximityWeight
	case days == 1:
		return 20
	case days <= 3:
		return 10
	case days <= 7:
		return 5
	default:
		return 0
	}
}

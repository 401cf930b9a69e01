// Package booking selects the governing scheduling rule and materializes
// appointments once a call has gathered enough information.
package booking

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/tradeline-ai-platform/internal/company"
)

// RuleContext is what the selector matches rules against.
type RuleContext struct {
	Trade         string
	ServiceType   string
	Priority      string
	RequestedDate time.Time
	IsEmergency   bool
}

var priorityRank = map[string]int{
	"emergency": 0,
	"high":      1,
	"normal":    2,
}

// SelectRule picks the most applicable booking rule, or nil when no rule
// passes. Rules are advisory: a nil result never blocks scheduling, the
// booking just proceeds without rule metadata.
//
// Blank Trade/ServiceType on a rule match any value. Survivors are
// stable-sorted by priority rank and walked in order; the first rule whose
// hard constraints all pass wins.
func SelectRule(rules []company.BookingRule, rctx RuleContext, now time.Time) *company.BookingRule {
	candidates := make([]company.BookingRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Trade != "" && !strings.EqualFold(rule.Trade, rctx.Trade) {
			continue
		}
		if rule.ServiceType != "" && !strings.EqualFold(rule.ServiceType, rctx.ServiceType) {
			continue
		}
		candidates = append(candidates, rule)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return rankOf(candidates[i].Priority) < rankOf(candidates[j].Priority)
	})

	for i := range candidates {
		if passesHardConstraints(&candidates[i], rctx, now) {
			return &candidates[i]
		}
	}
	return nil
}

func rankOf(priority string) int {
	if r, ok := priorityRank[strings.ToLower(priority)]; ok {
		return r
	}
	return priorityRank["normal"]
}

func passesHardConstraints(rule *company.BookingRule, rctx RuleContext, now time.Time) bool {
	if rctx.RequestedDate.IsZero() {
		return true
	}

	if len(rule.DaysOfWeek) > 0 && !dayAllowed(rule.DaysOfWeek, rctx.RequestedDate.Weekday()) {
		return false
	}
	if !rule.WeekendAllowed && isWeekend(rctx.RequestedDate.Weekday()) {
		return false
	}
	if !rule.SameDayAllowed && sameDay(rctx.RequestedDate, now) {
		return false
	}
	return true
}

var weekdayAbbrev = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

func dayAllowed(days []string, weekday time.Weekday) bool {
	abbrev := weekdayAbbrev[weekday]
	for _, d := range days {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == abbrev || strings.HasPrefix(d, abbrev) {
			return true
		}
	}
	return false
}

func isWeekend(weekday time.Weekday) bool {
	return weekday == time.Saturday || weekday == time.Sunday
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package roster

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActivityType is the kind of work logged by an entry
type ActivityType string

const (
	ActivityErrands  ActivityType = "errands"
	ActivityCatering ActivityType = "catering"
	ActivityWork     ActivityType = "work"
)

// ActivityTypes lists every recognised activity type
var ActivityTypes = []ActivityType{ActivityErrands, ActivityCatering, ActivityWork}

// Valid reports whether a is one of the recognised activity types
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityErrands, ActivityCatering, ActivityWork:
		return true
	}
	return false
}

// ParseActivityType converts a raw value into an ActivityType
func ParseActivityType(s string) (ActivityType, error) {
	a := ActivityType(strings.TrimSpace(s))
	if !a.Valid() {
		return "", newError(KindValidation, "unknown activity type %q", s)
	}
	return a, nil
}

// FilterActivityTypes keeps the recognised values in request order, dropping
// unknown values and duplicates
func FilterActivityTypes(values []string) []ActivityType {
	seen := make(map[ActivityType]bool, len(values))
	var result []ActivityType
	for _, v := range values {
		a, err := ParseActivityType(v)
		if err != nil || seen[a] {
			continue
		}
		seen[a] = true
		result = append(result, a)
	}
	return result
}

// Status is the review state of an entry
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

// ParseStatus converts a raw value into a Status
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusUnconfirmed, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", newError(KindValidation, "unknown entry status %q", s)
}

// MembershipStatus is derived from the directory row on load
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipSupport  MembershipStatus = "support"
	MembershipInactive MembershipStatus = "inactive"
)

// Date is a calendar day. Month is one-based (June is 6).
type Date struct {
	Day   int
	Month int
	Year  int
}

// DateOf returns the calendar day of t in t's location
func DateOf(t time.Time) Date {
	return Date{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// ParseDate parses the store's "DD.MM.YYYY" format. Day and month may omit
// the leading zero.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Date{}, newError(KindValidation, "invalid date %q: expected DD.MM.YYYY", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, newError(KindValidation, "invalid date %q: %v", s, err)
		}
		nums[i] = n
	}

	d := Date{Day: nums[0], Month: nums[1], Year: nums[2]}
	if !d.valid() {
		return Date{}, newError(KindValidation, "invalid date %q: no such day", s)
	}
	return d, nil
}

func (d Date) valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Year < 1 {
		return false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.Day && int(t.Month()) == d.Month
}

// String formats the date as "DD.MM.YYYY"
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

package promotion

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AudienceType orders promotions from the most to the least specific.
type AudienceType int

const (
	AudienceSelectedResellers AudienceType = 1
	AudienceSelectedGroups    AudienceType = 2
	AudienceAllResellers      AudienceType = 3
)

func (a AudienceType) String() string {
	switch a {
	case AudienceSelectedResellers:
		return "SELECTED_RESELLERS"
	case AudienceSelectedGroups:
		return "SELECTED_GROUPS"
	case AudienceAllResellers:
		return "ALL_RESELLERS"
	}
	return "UNKNOWN"
}

// ErrMalformedName is returned for promotion file names missing a segment
// or carrying an unreadable value.
var ErrMalformedName = errors.New("promotion: malformed file name")

var requiredSegments = []string{"gr", "st", "ed", "tp", "er", "re"}

// Descriptor is the typed form of the metadata encoded in a promotion
// file name.
type Descriptor struct {
	Name      string       `json:"name"`
	Audience  AudienceType `json:"audience"`
	ValidFrom time.Time    `json:"validFrom"`
	ValidTo   time.Time    `json:"validTo"`
	Groups    []string     `json:"groups,omitempty"`
	Excluded  []string     `json:"excluded,omitempty"`
	Included  []string     `json:"included,omitempty"`
}

// Audience identifies who is asking for a price.
type Audience struct {
	MemberID string
	GroupID  string
}

// ParseFilename decodes names such as
// "gr_4,5-st_202401010000-ed_202412312359-tp_2-er_17-re_.json".
// Dates are digits only and read in loc.
func ParseFilename(name string, loc *time.Location) (Descriptor, error) {
	if loc == nil {
		loc = time.UTC
	}
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))

	segments := make(map[string][]string, len(requiredSegments))
	for _, seg := range strings.Split(base, "-") {
		key, raw, _ := strings.Cut(seg, "_")
		segments[key] = splitIDs(raw)
	}
	for _, key := range requiredSegments {
		if _, ok := segments[key]; !ok {
			return Descriptor{}, fmt.Errorf("%w: %q lacks %q", ErrMalformedName, name, key)
		}
	}

	from, err := parseStamp(first(segments["st"]), loc)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %q start: %v", ErrMalformedName, name, err)
	}
	to, err := parseStamp(first(segments["ed"]), loc)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %q end: %v", ErrMalformedName, name, err)
	}
	if len(first(segments["ed"])) == len(dateOnly) {
		to = endOfDay(to)
	}
	tp, err := strconv.Atoi(first(segments["tp"]))
	if err != nil || tp < int(AudienceSelectedResellers) || tp > int(AudienceAllResellers) {
		return Descriptor{}, fmt.Errorf("%w: %q audience type %q", ErrMalformedName, name, first(segments["tp"]))
	}

	return Descriptor{
		Name:      path.Base(name),
		Audience:  AudienceType(tp),
		ValidFrom: from,
		ValidTo:   to,
		Groups:    segments["gr"],
		Excluded:  segments["er"],
		Included:  segments["re"],
	}, nil
}

// ParseFilenames keeps the well-formed names and silently skips the rest.
func ParseFilenames(names []string, loc *time.Location) []Descriptor {
	out := make([]Descriptor, 0, len(names))
	for _, n := range names {
		d, err := ParseFilename(n, loc)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Valid reports whether the promotion is running at now and targets the
// audience.
func (d Descriptor) Valid(a Audience, now time.Time) bool {
	if now.Before(d.ValidFrom) || now.After(d.ValidTo) {
		return false
	}
	switch d.Audience {
	case AudienceSelectedResellers:
		return contains(d.Included, a.MemberID)
	case AudienceSelectedGroups:
		return contains(d.Groups, a.GroupID) && !contains(d.Excluded, a.MemberID)
	case AudienceAllResellers:
		return !contains(d.Excluded, a.MemberID)
	}
	return false
}

// Find returns the valid descriptor with the most specific audience.
// Ties go to the earliest start, then to the file name.
func Find(records []Descriptor, a Audience, now time.Time) (Descriptor, bool) {
	valid := make([]Descriptor, 0, len(records))
	for _, r := range records {
		if r.Valid(a, now) {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return Descriptor{}, false
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Audience != valid[j].Audience {
			return valid[i].Audience < valid[j].Audience
		}
		if !valid[i].ValidFrom.Equal(valid[j].ValidFrom) {
			return valid[i].ValidFrom.Before(valid[j].ValidFrom)
		}
		return valid[i].Name < valid[j].Name
	})
	return valid[0], true
}

const dateOnly = "20060102"

// endOfDay stretches a date-only end stamp to the last instant of that day.
func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func parseStamp(digits string, loc *time.Location) (time.Time, error) {
	for _, r := range digits {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("non-digit in %q", digits)
		}
	}
	var layout string
	switch len(digits) {
	case len(dateOnly):
		layout = dateOnly
	case 12:
		layout = "200601021504"
	case 14:
		layout = "20060102150405"
	default:
		return time.Time{}, fmt.Errorf("unsupported length %d", len(digits))
	}
	return time.ParseInLocation(layout, digits, loc)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

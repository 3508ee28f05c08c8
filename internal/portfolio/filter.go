// Package portfolio filters and sorts the published case studies.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownSort is returned by ParseSortMode for unsupported sort names.
var ErrUnknownSort = errors.New("unknown sort mode")

// SortMode orders a filtered portfolio.
type SortMode string

const (
	SortDate        SortMode = "date"
	SortSizeAsc     SortMode = "size-asc"
	SortSizeDesc    SortMode = "size-desc"
	SortSavingsDesc SortMode = "savings-desc"
)

// ParseSortMode accepts the query-string names; empty means SortDate.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortDate, nil
	case SortDate, SortSizeAsc, SortSizeDesc, SortSavingsDesc:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSort, s)
	}
}

// Filter narrows the portfolio. Empty fields or "all" match everything.
type Filter struct {
	Size         string `json:"size,omitempty"`
	Region       string `json:"region,omitempty"`
	SystemType   string `json:"system_type,omitempty"` // substring of CaseStudy.SystemType
	PropertyType string `json:"property_type,omitempty"`
}

func (f Filter) Match(c CaseStudy) bool {
	return matchExact(f.Size, c.Size) &&
		matchExact(f.Region, c.Region) &&
		matchSubstring(f.SystemType, c.SystemType) &&
		matchExact(f.PropertyType, c.PropertyType)
}

func unset(want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, "all")
}

func matchExact(want, have string) bool {
	return unset(want) || strings.EqualFold(strings.TrimSpace(want), have)
}

func matchSubstring(want, have string) bool {
	if unset(want) {
		return true
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(strings.TrimSpace(want)))
}

// Apply filters list and sorts the survivors. The input slice is not modified.
func Apply(list []CaseStudy, f Filter, mode SortMode) []CaseStudy {
	out := make([]CaseStudy, 0, len(list))
	for _, c := range list {
		if f.Match(c) {
			out = append(out, c)
		}
	}

	var less func(a, b CaseStudy) bool
	switch mode {
	case SortSizeAsc:
		less = func(a, b CaseStudy) bool { return a.SystemSizeKW < b.SystemSizeKW }
	case SortSizeDesc:
		less = func(a, b CaseStudy) bool { return a.SystemSizeKW > b.SystemSizeKW }
	case SortSavingsDesc:
		less = func(a, b CaseStudy) bool { return SavingsValue(a.AnnualSavings) > SavingsValue(b.AnnualSavings) }
	default:
		less = func(a, b CaseStudy) bool { return a.CompletedAt.After(b.CompletedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// SavingsValue extracts the first number from display text such as
// "$1,920/yr". The value is taken as unsigned: a leading "-" is ignored.
// Commas inside the number are thousands separators and a second "." ends
// it, so "1.2.3" reads as 1.2. Text without a number, like "N/A", is worth 0.
func SavingsValue(s string) float64 {
	var b strings.Builder
	seenDigit, seenDot := false, false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == '.' && seenDigit && !seenDot:
			b.WriteRune(r)
			seenDot = true
		case r == ',' && seenDigit && !seenDot:
		case seenDigit:
			break scan
		}
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil {
		return 0
	}
	return v
}

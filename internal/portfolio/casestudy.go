package portfolio

import "time"

// Size categories used by the portfolio filter.
const (
	SizeSmall  = "small"  // under 8 kW
	SizeMedium = "medium" // 8-15 kW
	SizeLarge  = "large"  // over 15 kW
)

// CaseStudy is one completed design shown in the portfolio.
type CaseStudy struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	State         string    `json:"state"`
	Region        string    `json:"region"`
	Size          string    `json:"size"`
	SystemSizeKW  float64   `json:"system_size_kw"`
	SystemType    string    `json:"system_type"`
	PropertyType  string    `json:"property_type"`
	AnnualSavings string    `json:"annual_savings"`
	CompletedAt   time.Time `json:"completed_at"`
	Summary       string    `json:"summary,omitempty"`
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CaseStudies returns the published case studies. The slice is freshly
// allocated on every call so callers may reorder it.
func CaseStudies() []CaseStudy {
	return []CaseStudy{
		{
			ID:            "phoenix-ranch",
			Title:         "Single-story ranch with west-facing array",
			Location:      "Phoenix, AZ",
			State:         "AZ",
			Region:        "southwest",
			Size:          SizeMedium,
			SystemSizeKW:  9.6,
			SystemType:    "Grid-tied",
			PropertyType:  "residential",
			AnnualSavings: "$1,920/yr",
			CompletedAt:   date(2024, time.March, 18),
			Summary:       "Permit-ready plan set delivered in four days; passed first inspection.",
		},
		{
			ID:            "austin-battery",
			Title:         "Solar plus storage for outage protection",
			Location:      "Austin, TX",
			State:         "TX",
			Region:        "south",
			Size:          SizeMedium,
			SystemSizeKW:  11.2,
			SystemType:    "Grid-tied with battery backup",
			PropertyType:  "residential",
			AnnualSavings: "$2,150/yr",
			CompletedAt:   date(2024, time.June, 2),
			Summary:       "Two-battery design covering refrigeration, well pump and network gear.",
		},
		{
			ID:            "montana-cabin",
			Title:         "Off-grid mountain cabin",
			Location:      "Bozeman, MT",
			State:         "MT",
			Region:        "mountain",
			Size:          SizeSmall,
			SystemSizeKW:  6.4,
			SystemType:    "Off-grid with battery bank",
			PropertyType:  "cabin",
			AnnualSavings: "N/A",
			CompletedAt:   date(2023, time.September, 27),
			Summary:       "No utility connection; sized for three days of winter autonomy.",
		},
		{
			ID:            "denver-duplex",
			Title:         "Duplex with split metering",
			Location:      "Denver, CO",
			State:         "CO",
			Region:        "mountain",
			Size:          SizeSmall,
			SystemSizeKW:  7.8,
			SystemType:    "Grid-tied",
			PropertyType:  "multi-family",
			AnnualSavings: "$1,340/yr",
			CompletedAt:   date(2023, time.November, 9),
		},
		{
			ID:            "sacramento-farm",
			Title:         "Ground-mount array for a working farm",
			Location:      "Sacramento, CA",
			State:         "CA",
			Region:        "west",
			Size:          SizeLarge,
			SystemSizeKW:  24.5,
			SystemType:    "Ground-mount grid-tied",
			PropertyType:  "agricultural",
			AnnualSavings: "$7,480/yr",
			CompletedAt:   date(2024, time.January, 22),
			Summary:       "Structural letters and trenching plan included with the permit package.",
		},
		{
			ID:            "raleigh-shop",
			Title:         "Retail storefront rooftop",
			Location:      "Raleigh, NC",
			State:         "NC",
			Region:        "southeast",
			Size:          SizeLarge,
			SystemSizeKW:  18.0,
			SystemType:    "Commercial grid-tied",
			PropertyType:  "commercial",
			AnnualSavings: "$3,960/yr",
			CompletedAt:   date(2024, time.August, 14),
		},
		{
			ID:            "tampa-bungalow",
			Title:         "Hurricane-rated bungalow install",
			Location:      "Tampa, FL",
			State:         "FL",
			Region:        "southeast",
			Size:          SizeSmall,
			SystemSizeKW:  7.2,
			SystemType:    "Grid-tied with battery backup",
			PropertyType:  "residential",
			AnnualSavings: "$1,610/yr",
			CompletedAt:   date(2024, time.April, 30),
			Summary:       "Wind-load calculations for 150 mph exposure C.",
		},
		{
			ID:            "jersey-colonial",
			Title:         "Colonial with complex multi-plane roof",
			Location:      "Princeton, NJ",
			State:         "NJ",
			Region:        "northeast",
			Size:          SizeMedium,
			SystemSizeKW:  12.4,
			SystemType:    "Grid-tied",
			PropertyType:  "residential",
			AnnualSavings: "$2,890/yr",
			CompletedAt:   date(2023, time.July, 11),
		},
	}
}

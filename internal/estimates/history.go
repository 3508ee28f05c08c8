package estimates

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/storage"
)

// ListOptions filters List. Zero values mean no constraint.
type ListOptions struct {
	Kind  calculator.Kind
	State string
	Since time.Time
	Until time.Time
	Limit int
}

// List returns stored estimates, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Estimate, error) {
	q := storage.EstimateQuery{
		State: opts.State,
		Since: opts.Since,
		Until: opts.Until,
		Limit: opts.Limit,
	}
	if opts.Kind != 0 {
		q.Kind = opts.Kind.String()
	}
	recs, err := s.store.ListEstimates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	out := make([]Estimate, 0, len(recs))
	for _, rec := range recs {
		est, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}

// Get returns one stored estimate or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Estimate, error) {
	rec, err := s.store.GetEstimate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get estimate %s: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	est, err := decode(*rec)
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func decode(rec storage.Estimate) (Estimate, error) {
	kind, err := calculator.ParseKind(rec.Kind)
	if err != nil {
		return Estimate{}, fmt.Errorf("estimate %s: %w", rec.ID, err)
	}
	est := Estimate{ID: rec.ID, Kind: kind, State: rec.State, CreatedAt: rec.CreatedAt}
	if err := json.Unmarshal(rec.Input, &est.Inputs); err != nil {
		return Estimate{}, fmt.Errorf("estimate %s: decode inputs: %w", rec.ID, err)
	}
	if err := json.Unmarshal(rec.Result, &est.Result); err != nil {
		return Estimate{}, fmt.Errorf("estimate %s: decode result: %w", rec.ID, err)
	}
	return est, nil
}

// Summary aggregates the estimates created in [Since, Until).
type Summary struct {
	Since  time.Time      `json:"since"`
	Until  time.Time      `json:"until"`
	Total  int            `json:"total"`
	ByKind map[string]int `json:"byKind"`
	// ByState counts system-size estimates that named a state.
	ByState map[string]int `json:"byState,omitempty"`

	AvgSystemSizeKW       float64 `json:"avgSystemSizeKw"`
	AvgPaybackYears       float64 `json:"avgPaybackYears"`
	AvgBatteryKWh         float64 `json:"avgBatteryKwh"`
	TotalAnnualSavingsUSD float64 `json:"totalAnnualSavingsUsd"`
}

// TopStates returns up to n state codes by estimate count, ties broken by code.
func (s Summary) TopStates(n int) []string {
	codes := make([]string, 0, len(s.ByState))
	for code := range s.ByState {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ci, cj := s.ByState[codes[i]], s.ByState[codes[j]]
		if ci != cj {
			return ci > cj
		}
		return codes[i] < codes[j]
	})
	if len(codes) > n {
		codes = codes[:n]
	}
	return codes
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Summarize reports counts and averages over the estimates in [since, until).
func (s *Service) Summarize(ctx context.Context, since, until time.Time) (Summary, error) {
	list, err := s.List(ctx, ListOptions{Since: since, Until: until})
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Since:   since,
		Until:   until,
		Total:   len(list),
		ByKind:  make(map[string]int),
		ByState: make(map[string]int),
	}
	for _, k := range calculator.Kinds() {
		sum.ByKind[k.String()] = 0
	}

	var size, payback, battery mean
	for _, est := range list {
		sum.ByKind[est.Kind.String()]++
		switch {
		case est.Result.SystemSize != nil:
			size.add(est.Result.SystemSize.SystemSizeKW)
			sum.TotalAnnualSavingsUSD += est.Result.SystemSize.AnnualSavingsUSD
			if est.State != "" {
				sum.ByState[est.State]++
			}
		case est.Result.Payback != nil:
			payback.add(est.Result.Payback.PaybackYears)
		case est.Result.Battery != nil:
			battery.add(est.Result.Battery.RecommendedSizeKWh)
		}
	}
	sum.AvgSystemSizeKW = calculator.Round(size.value(), 2)
	sum.AvgPaybackYears = calculator.Round(payback.value(), 1)
	sum.AvgBatteryKWh = calculator.Round(battery.value(), 1)
	return sum, nil
}

package states

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bher20/solarquote/internal/storage"
)

const (
	SourceDefault   = "default"
	SourceRateSheet = "rate-sheet"
)

// Service resolves state profiles against rate overrides kept in storage.
// A nil store serves the built-in profiles only.
type Service struct {
	store storage.Storage
}

func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// Effective returns the profile for code with any stored rate override applied.
func (s *Service) Effective(ctx context.Context, code string) (Profile, error) {
	p, ok := Lookup(code)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownState, code)
	}
	return s.overlay(ctx, p)
}

// List returns every effective profile ordered by code.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	profiles := Profiles()
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		eff, err := s.overlay(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, eff)
	}
	return out, nil
}

func (s *Service) overlay(ctx context.Context, p Profile) (Profile, error) {
	p.RateSource = SourceDefault
	if s.store == nil {
		return p, nil
	}
	r, err := s.store.GetStateRate(ctx, p.Code)
	if err != nil {
		return Profile{}, fmt.Errorf("load rate override for %s: %w", p.Code, err)
	}
	if r != nil && r.EnergyUSDPerKWh > 0 {
		p.AvgRateUSDPerKWh = r.EnergyUSDPerKWh + r.FuelUSDPerKWh
		p.RateSource = r.Source
	}
	return p, nil
}

// ImportRateSheet parses an uploaded tariff PDF and stores the resulting rate
// as the override for code.
func (s *Service) ImportRateSheet(ctx context.Context, code string, r io.Reader) (storage.StateRate, error) {
	p, ok := Lookup(code)
	if !ok {
		return storage.StateRate{}, fmt.Errorf("%w: %q", ErrUnknownState, code)
	}
	if s.store == nil {
		return storage.StateRate{}, fmt.Errorf("rate sheet import requires a storage backend")
	}

	dir, err := os.MkdirTemp("", "solarquote-ratesheet-*")
	if err != nil {
		return storage.StateRate{}, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, strings.ToLower(p.Code)+".pdf")
	if err := writeFileAtomically(path, r); err != nil {
		return storage.StateRate{}, fmt.Errorf("save upload: %w", err)
	}
	sheet, err := ParseRateSheetPDF(path)
	if err != nil {
		return storage.StateRate{}, err
	}
	return s.storeSheet(ctx, p.Code, sheet)
}

// ImportRateSheetFile is ImportRateSheet for a PDF already on disk.
func (s *Service) ImportRateSheetFile(ctx context.Context, code, path string) (storage.StateRate, error) {
	f, err := os.Open(path)
	if err != nil {
		return storage.StateRate{}, err
	}
	defer f.Close()
	return s.ImportRateSheet(ctx, code, f)
}

func (s *Service) storeSheet(ctx context.Context, code string, sheet RateSheet) (storage.StateRate, error) {
	rate := storage.StateRate{
		State:             code,
		EnergyUSDPerKWh:   sheet.EnergyUSDPerKWh,
		FuelUSDPerKWh:     sheet.FuelUSDPerKWh,
		CustomerChargeUSD: sheet.CustomerChargeUSD,
		Source:            SourceRateSheet,
		UpdatedAt:         time.Now(),
	}
	if err := s.store.UpsertStateRate(ctx, rate); err != nil {
		return storage.StateRate{}, fmt.Errorf("store rate override for %s: %w", code, err)
	}
	return rate, nil
}

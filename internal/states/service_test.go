package states

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/bher20/solarquote/internal/storage"
)

func TestService_EffectiveDefault(t *testing.T) {
	svc := NewService(nil)
	p, err := svc.Effective(context.Background(), "tx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Code != "TX" || p.RateSource != SourceDefault {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestService_EffectiveUnknown(t *testing.T) {
	_, err := NewService(nil).Effective(context.Background(), "ZZ")
	if !errors.Is(err, ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
}

func TestService_EffectiveOverride(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	svc := NewService(st)

	sheet, err := ParseRateSheetText("Energy Charge: 11.34 cents per kWh\nFuel Cost Adjustment: 0.50 cents per kWh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.storeSheet(ctx, "TN", sheet); err != nil {
		t.Fatalf("store: %v", err)
	}

	p, err := svc.Effective(ctx, "TN")
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if p.RateSource != SourceRateSheet {
		t.Fatalf("expected rate-sheet source, got %q", p.RateSource)
	}
	if math.Abs(p.AvgRateUSDPerKWh-0.1184) > 1e-9 {
		t.Fatalf("unexpected rate %v", p.AvgRateUSDPerKWh)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range all {
		if q.Code == "TN" && q.RateSource != SourceRateSheet {
			t.Fatalf("List did not apply override")
		}
		if q.Code == "TX" && q.RateSource != SourceDefault {
			t.Fatalf("List applied override to TX")
		}
	}
}

func TestService_ImportRateSheetRejectsNonPDF(t *testing.T) {
	svc := NewService(storage.NewMemory())
	_, err := svc.ImportRateSheet(context.Background(), "TN", strings.NewReader("not a pdf"))
	if err == nil {
		t.Fatalf("expected error for non-PDF upload")
	}
}

func TestService_ImportRateSheetNeedsStore(t *testing.T) {
	_, err := NewService(nil).ImportRateSheet(context.Background(), "TN", strings.NewReader(""))
	if err == nil {
		t.Fatalf("expected error without storage")
	}
}

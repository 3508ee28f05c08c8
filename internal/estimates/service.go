// Package estimates runs the calculators for API and CLI callers, fills
// location defaults from the state profiles, and keeps a history of every
// estimate for the admin views and the sales digest.
package estimates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bher20/solarquote/internal/cache"
	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/metrics"
	"github.com/bher20/solarquote/internal/states"
	"github.com/bher20/solarquote/internal/storage"
)

// ErrNotFound is returned by Get for unknown estimate ids.
var ErrNotFound = errors.New("estimate not found")

const defaultCacheTTL = 24 * time.Hour

// Request is one calculator submission. Fields holds the raw form values
// keyed by calculator field name.
type Request struct {
	Kind   calculator.Kind
	State  string
	Fields map[string]string
}

// Estimate is a computed calculator result with the inputs that produced it.
type Estimate struct {
	ID        string            `json:"id"`
	Kind      calculator.Kind   `json:"kind"`
	State     string            `json:"state,omitempty"`
	Inputs    map[string]string `json:"inputs"`
	Result    calculator.Result `json:"result"`
	Cached    bool              `json:"cached"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Options configures a Service.
type Options struct {
	// Cache is optional; nil disables result caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// States resolves the state defaults. Nil uses the built-in profiles.
	States *states.Service
}

type Service struct {
	store  storage.Storage
	cache  cache.Cache
	ttl    time.Duration
	states *states.Service
	now    func() time.Time
}

func NewService(store storage.Storage, opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	st := opts.States
	if st == nil {
		st = states.NewService(store)
	}
	return &Service{
		store:  store,
		cache:  opts.Cache,
		ttl:    ttl,
		states: st,
		now:    time.Now,
	}
}

// Calculate validates the request, runs the calculator and records the
// estimate. Identical inputs within the cache TTL return the earlier estimate
// with Cached set.
func (s *Service) Calculate(ctx context.Context, req Request) (*Estimate, error) {
	inputs, err := s.resolveInputs(ctx, req)
	if err != nil {
		return nil, err
	}

	key := cacheKey(req.Kind, req.State, inputs)
	if cached, ok := s.fromCache(ctx, key); ok {
		metrics.CalculationsTotal.WithLabelValues(req.Kind.String(), "hit").Inc()
		return cached, nil
	}

	res, err := calculator.Calculate(req.Kind, inputs)
	if err != nil {
		var ie *calculator.InputError
		if errors.As(err, &ie) {
			metrics.InvalidInputsTotal.WithLabelValues(req.Kind.String(), ie.Field).Inc()
		}
		return nil, err
	}
	metrics.CalculationsTotal.WithLabelValues(req.Kind.String(), "miss").Inc()

	est := &Estimate{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		State:     strings.ToUpper(req.State),
		Inputs:    inputs,
		Result:    res,
		CreatedAt: s.now().UTC(),
	}
	s.persist(ctx, key, est)
	return est, nil
}

// resolveInputs keeps only the fields the calculator reads and fills blank
// system-size location fields from the state profile.
func (s *Service) resolveInputs(ctx context.Context, req Request) (map[string]string, error) {
	names := calculator.Fields(req.Kind)
	if names == nil {
		return nil, fmt.Errorf("%w: %d", calculator.ErrUnknownKind, int(req.Kind))
	}
	inputs := make(map[string]string, len(names))
	for _, name := range names {
		inputs[name] = strings.TrimSpace(req.Fields[name])
	}

	if req.State == "" || req.Kind != calculator.KindSystemSize {
		return inputs, nil
	}
	p, err := s.states.Effective(ctx, req.State)
	if err != nil {
		return nil, err
	}
	if inputs[calculator.FieldElectricityRate] == "" {
		inputs[calculator.FieldElectricityRate] = strconv.FormatFloat(p.AvgRateUSDPerKWh, 'f', -1, 64)
	}
	if inputs[calculator.FieldSunHours] == "" {
		inputs[calculator.FieldSunHours] = strconv.FormatFloat(p.PeakSunHours, 'f', -1, 64)
	}
	return inputs, nil
}

// cacheKey hashes the canonical form of a request: the calculator's fields in
// form order plus the upper-cased state.
func cacheKey(kind calculator.Kind, state string, inputs map[string]string) string {
	h := sha256.New()
	fmt.Fprintf(h, "state=%s\n", strings.ToUpper(state))
	for _, name := range calculator.Fields(kind) {
		fmt.Fprintf(h, "%s=%s\n", name, inputs[name])
	}
	return "estimate:" + kind.String() + ":" + hex.EncodeToString(h.Sum(nil))
}

func (s *Service) fromCache(ctx context.Context, key string) (*Estimate, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var est Estimate
	if err := json.Unmarshal([]byte(raw), &est); err != nil {
		log.Printf("estimates: discarding corrupt cache entry %s: %v", key, err)
		return nil, false
	}
	est.Cached = true
	return &est, true
}

// persist stores the estimate and primes the cache. Failures are logged; the
// caller still gets its result.
func (s *Service) persist(ctx context.Context, key string, est *Estimate) {
	input, err := json.Marshal(est.Inputs)
	if err != nil {
		log.Printf("estimates: encode inputs: %v", err)
		return
	}
	result, err := json.Marshal(est.Result)
	if err != nil {
		log.Printf("estimates: encode result: %v", err)
		return
	}

	if s.store != nil {
		rec := storage.Estimate{
			ID:          est.ID,
			Kind:        est.Kind.String(),
			State:       est.State,
			Fingerprint: key,
			Input:       input,
			Result:      result,
			CreatedAt:   est.CreatedAt,
		}
		if err := s.store.SaveEstimate(ctx, rec); err != nil {
			log.Printf("estimates: save %s failed: %v", est.ID, err)
		}
	}

	if s.cache != nil {
		b, err := json.Marshal(est)
		if err != nil {
			log.Printf("estimates: encode cache entry: %v", err)
			return
		}
		if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
			log.Printf("estimates: cache set failed: %v", err)
		}
	}
}

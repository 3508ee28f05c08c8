package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/portfolio"
	"github.com/bher20/solarquote/internal/states"
)

const maxCalculatorBody = 64 << 10

// decodeCalculateRequest accepts {"state": "TX", "fields": {...}}, a flat
// object such as {"monthlyBill": "150", "state": "TX"}, or a urlencoded form.
// JSON field values may be strings or numbers.
func decodeCalculateRequest(r *http.Request) (state string, fields map[string]string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		fields = make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		return r.PostForm.Get("state"), fields, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadBody, err)
	}

	if s, ok := raw["state"].(string); ok {
		state = s
	}
	src := raw
	if nested, ok := raw["fields"].(map[string]any); ok {
		src = nested
	}
	fields = make(map[string]string, len(src))
	for k, v := range src {
		if k == "state" || k == "fields" {
			continue
		}
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case nil:
		default:
			return "", nil, fmt.Errorf("%w: field %q must be a string or number", errBadBody, k)
		}
	}
	return state, fields, nil
}

var errBadBody = errors.New("invalid request body")

func (h *handlers) calculate(w http.ResponseWriter, r *http.Request) {
	kind, err := calculator.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeErr(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCalculatorBody)
	state, fields, err := decodeCalculateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	est, err := h.d.Estimates.Calculate(r.Context(), estimates.Request{Kind: kind, State: state, Fields: fields})
	if errors.Is(err, states.ErrUnknownState) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type portfolioResponse struct {
	Count   int                   `json:"count"`
	Sort    portfolio.SortMode    `json:"sort"`
	Filter  portfolio.Filter      `json:"filter"`
	Results []portfolio.CaseStudy `json:"results"`
}

func (h *handlers) portfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := portfolio.ParseSortMode(q.Get("sort"))
	if err != nil {
		writeErr(w, err)
		return
	}
	f := portfolio.Filter{
		Size:         q.Get("size"),
		Region:       q.Get("region"),
		SystemType:   q.Get("type"),
		PropertyType: q.Get("property"),
	}
	list := portfolio.Apply(portfolio.CaseStudies(), f, mode)
	writeJSON(w, http.StatusOK, portfolioResponse{Count: len(list), Sort: mode, Filter: f, Results: list})
}

func (h *handlers) listStates(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.States.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	p, err := h.d.States.Effective(r.Context(), r.PathValue("code"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Role      string `json:"role"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCalculatorBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	tok, raw, err := h.d.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := loginResponse{Token: raw, Role: tok.Role}
	if tok.ExpiresAt != nil {
		resp.ExpiresAt = tok.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	writeJSON(w, http.StatusOK, resp)
}

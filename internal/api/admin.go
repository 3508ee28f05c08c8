package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/cron"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxRateSheetBody = 10 << 20
	maxSettingsBody  = 64 << 10
)

// parseSince accepts RFC 3339 timestamps or a lookback such as "24h" or "7d".
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n > 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q", s)
}

type estimateList struct {
	Count   int                  `json:"count"`
	Results []estimates.Estimate `json:"results"`
}

func (h *handlers) listEstimates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := estimates.ListOptions{State: strings.ToUpper(q.Get("state")), Limit: defaultListLimit}

	if k := q.Get("kind"); k != "" {
		kind, err := calculator.ParseKind(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Kind = kind
	}
	since, err := parseSince(q.Get("since"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Since = since
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = min(n, maxListLimit)
	}

	list, err := h.d.Estimates.List(r.Context(), opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateList{Count: len(list), Results: list})
}

func (h *handlers) getEstimate(w http.ResponseWriter, r *http.Request) {
	est, err := h.d.Estimates.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	raw := r.URL.Query().Get("since")
	if raw == "" {
		raw = "24h"
	}
	since, err := parseSince(raw, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := h.d.Estimates.Summarize(r.Context(), since, now)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *handlers) listStateRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.d.Store.ListStateRates(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if rates == nil {
		rates = []storage.StateRate{}
	}
	writeJSON(w, http.StatusOK, rates)
}

// importRateSheet takes the PDF either as the raw request body or as the
// "file" part of a multipart form.
func (h *handlers) importRateSheet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRateSheetBody)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file part")
			return
		}
		defer f.Close()
		body = f
	}

	rate, err := h.d.States.ImportRateSheet(r.Context(), r.PathValue("code"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "rate sheet exceeds 10MB")
			return
		}
		if statusFor(err) == http.StatusInternalServerError {
			// unreadable PDFs surface as parse errors
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (h *handlers) getEmailConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.d.Notify.GetConfig(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusOK, storage.EmailConfig{})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *handlers) putEmailConfig(w http.ResponseWriter, r *http.Request) {
	var cfg storage.EmailConfig
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody)).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	if err := notification.Validate(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.d.Notify.SaveConfig(r.Context(), cfg); err != nil {
		writeErr(w, err)
		return
	}
	h.getEmailConfig(w, r)
}

type testEmailRequest struct {
	To     string               `json:"to"`
	Config *storage.EmailConfig `json:"config,omitempty"`
}

// testEmailConfig sends a test message through the supplied config, or
// through the stored one when the request omits it.
func (h *handlers) testEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req testEmailRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	var err error
	if req.Config != nil {
		if verr := notification.Validate(*req.Config); verr != nil {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		err = h.d.Notify.TestConfig(r.Context(), *req.Config, req.To)
	} else {
		err = h.d.Notify.Send(r.Context(), notification.Message{
			To:      req.To,
			Subject: "solarquote test email",
			HTML:    "<p>This is a test email from solarquote. Digest delivery is working.</p>",
		})
	}
	if errors.Is(err, notification.ErrNotConfigured) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type digestSettings struct {
	Schedule string `json:"schedule"`
	To       string `json:"to"`
}

func (h *handlers) getDigestSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var out digestSettings
	var err error
	if out.Schedule, err = h.d.Store.GetSetting(ctx, cron.SettingDigestSchedule); err != nil {
		writeErr(w, err)
		return
	}
	if out.To, err = h.d.Store.GetSetting(ctx, cron.SettingDigestTo); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) putDigestSettings(w http.ResponseWriter, r *http.Request) {
	var in digestSettings
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	if err := cron.ValidateSchedule(in.Schedule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	if err := h.d.Store.SetSetting(ctx, cron.SettingDigestSchedule, strings.TrimSpace(in.Schedule)); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.d.Store.SetSetting(ctx, cron.SettingDigestTo, strings.TrimSpace(in.To)); err != nil {
		writeErr(w, err)
		return
	}
	h.getDigestSettings(w, r)
}

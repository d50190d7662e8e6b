package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/CharlesToronto/brotherstudio/model"
	"github.com/CharlesToronto/brotherstudio/security"
	"github.com/CharlesToronto/brotherstudio/store"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	// VisitorCookieName identifies a browser across page views
	VisitorCookieName   = "bs_visitor_id"
	visitorCookieMaxAge = 60 * 60 * 24 * 365
	maxHitBodyBytes     = 4 << 10
)

// RecordHit handles POST /api/analytics/hit {"path": "/en/services"}.
// It always answers 202 so the page tracker never retries; untrackable
// paths and unreadable bodies are simply not counted.
func (h *SiteHandler) RecordHit(w http.ResponseWriter, r *http.Request) {
	path := store.NormalizePath(hitPath(w, r))
	if !store.IsTrackable(path) || h.skipCrawler(r) {
		SendJSONSuccess(w, http.StatusAccepted, model.OKResponse{OK: true})
		return
	}

	visitorID := ""
	if c, err := r.Cookie(VisitorCookieName); err == nil {
		visitorID = strings.TrimSpace(c.Value)
	}
	if visitorID == "" {
		visitorID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookieName,
			Value:    visitorID,
			Path:     "/",
			MaxAge:   visitorCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   h.config.IsProduction(),
		})
	}

	h.analytics.RecordPageView(path, visitorID)
	h.cache.InvalidateSummary()
	h.broadcastSummary()

	SendJSONSuccess(w, http.StatusAccepted, model.OKResponse{OK: true})
}

// hitPath reads the beacon body. A body that is unreadable or does not
// decode cleanly yields "", which counts as a hit on "/".
func hitPath(w http.ResponseWriter, r *http.Request) string {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxHitBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var input model.HitRequest
	if err := json.Unmarshal(raw, &input); err != nil {
		return ""
	}
	return input.Path
}

// skipCrawler drops page views from crawlers when bot detection is on
func (h *SiteHandler) skipCrawler(r *http.Request) bool {
	return h.config.Security.BotDetectionEnabled && security.IsCrawler(r.UserAgent())
}

func (h *SiteHandler) broadcastSummary() {
	if h.hub == nil || h.hub.ClientCount() == 0 {
		return
	}
	h.hub.BroadcastSummary(h.summary())
}

// summary returns the analytics summary, served from the cache when
// possible
func (h *SiteHandler) summary() model.AnalyticsSummary {
	if h.config.Cache.Enabled {
		if cached, ok := h.cache.Summary(); ok {
			return cached
		}
	}

	summary := h.analytics.Summary()
	if h.config.Cache.Enabled {
		h.cache.SetSummary(summary)
	}
	return summary
}

// GetAnalyticsSummary handles GET /api/admin/analytics
func (h *SiteHandler) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	SendJSONSuccess(w, http.StatusOK, h.summary())
}

// LiveAnalytics handles GET /api/admin/live. The connection receives the
// current summary immediately and every update after that.
func (h *SiteHandler) LiveAnalytics(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("live updates are disabled"), "")
		return
	}

	summary := h.summary()
	h.hub.ServeWS(w, r, &summary)
}

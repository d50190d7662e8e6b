package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/CharlesToronto/brotherstudio/assets"
	"github.com/CharlesToronto/brotherstudio/cache"
	"github.com/CharlesToronto/brotherstudio/config"
	"github.com/CharlesToronto/brotherstudio/email"
	"github.com/CharlesToronto/brotherstudio/live"
	"github.com/CharlesToronto/brotherstudio/security"
	"github.com/CharlesToronto/brotherstudio/store"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// SiteHandler serves the site's JSON API
type SiteHandler struct {
	gallery   *store.GalleryStore
	analytics *store.AnalyticsStore
	uploads   *assets.Store
	mailer    email.Mailer
	cache     *cache.Cache
	hub       *live.Hub
	redis     *redis.Client
	config    config.Config
	siteURL   string
	now       func() time.Time
}

// NewSiteHandler creates the API handler. cacheClient, hub, rdb and
// mailer may be nil; the matching features then degrade instead of
// failing.
func NewSiteHandler(
	gallery *store.GalleryStore,
	analytics *store.AnalyticsStore,
	uploads *assets.Store,
	mailer email.Mailer,
	cacheClient *cache.Cache,
	hub *live.Hub,
	rdb *redis.Client,
	cfg config.Config,
) *SiteHandler {
	return &SiteHandler{
		gallery:   gallery,
		analytics: analytics,
		uploads:   uploads,
		mailer:    mailer,
		cache:     cacheClient,
		hub:       hub,
		redis:     rdb,
		config:    cfg,
		siteURL:   strings.TrimRight(cfg.Site.URL, "/"),
		now:       time.Now,
	}
}

// HealthCheck handles GET /health
func (h *SiteHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
	}
	status := http.StatusOK

	if h.redis == nil {
		health["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Redis health check failed")
		health["status"] = "degraded"
		health["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		health["redis"] = "connected"
	}

	if h.config.Cache.Enabled && h.cache != nil {
		snapshot := h.cache.GetMetricsSnapshot()
		health["cache"] = map[string]interface{}{
			"enabled":  true,
			"hits":     snapshot.Hits,
			"misses":   snapshot.Misses,
			"hitRatio": snapshot.HitRatio,
		}
	} else {
		health["cache"] = map[string]interface{}{"enabled": false}
	}

	if h.hub != nil {
		health["liveClients"] = h.hub.ClientCount()
	}

	SendJSONSuccess(w, status, health)
}

// SecurityStats is the admin view of bot detection counters
type SecurityStats struct {
	BotDetectionEnabled bool           `json:"botDetectionEnabled"`
	BotDetections       int64          `json:"botDetections"`
	BotDetectionsLast24 int64          `json:"botDetectionsLast24h"`
	TopBlockedIPs       []IPBlockCount `json:"topBlockedIPs"`
	TopBlockReasons     []ReasonCount  `json:"topBlockReasons"`
	LastUpdated         time.Time      `json:"lastUpdated"`
}

// IPBlockCount is how often one IP was blocked
type IPBlockCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}

// ReasonCount is how often a block reason fired
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// GetSecurityStats handles GET /api/admin/security
func (h *SiteHandler) GetSecurityStats(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("security counters are disabled"), "Enable redis to collect bot detection statistics")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	now := h.now()
	stats := SecurityStats{
		BotDetectionEnabled: h.config.Security.BotDetectionEnabled,
		TopBlockedIPs:       []IPBlockCount{},
		TopBlockReasons:     []ReasonCount{},
		LastUpdated:         now.UTC(),
	}

	botCount, err := h.redis.Get(ctx, security.BotDetectionsKey).Int64()
	if err != nil && err != redis.Nil {
		log.Error().Err(err).Msg("Failed to get bot detection count")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to read security statistics")
		return
	}
	stats.BotDetections = botCount

	yesterday := now.Add(-24 * time.Hour).Unix()
	last24h, err := h.redis.ZCount(ctx, security.BotTimelineKey, fmt.Sprintf("%d", yesterday), "+inf").Result()
	if err != nil && err != redis.Nil {
		log.Error().Err(err).Msg("Failed to get bot detections last 24h")
	}
	stats.BotDetectionsLast24 = last24h

	topIPs, err := h.redis.ZRevRangeWithScores(ctx, security.BlockedIPsKey, 0, 9).Result()
	if err != nil && err != redis.Nil {
		log.Error().Err(err).Msg("Failed to get top blocked IPs")
	}
	for _, z := range topIPs {
		if ip, ok := z.Member.(string); ok {
			stats.TopBlockedIPs = append(stats.TopBlockedIPs, IPBlockCount{IP: ip, Count: int64(z.Score)})
		}
	}

	topReasons, err := h.redis.ZRevRangeWithScores(ctx, security.BlockReasonsKey, 0, 9).Result()
	if err != nil && err != redis.Nil {
		log.Error().Err(err).Msg("Failed to get top block reasons")
	}
	for _, z := range topReasons {
		if reason, ok := z.Member.(string); ok {
			stats.TopBlockReasons = append(stats.TopBlockReasons, ReasonCount{Reason: reason, Count: int64(z.Score)})
		}
	}

	SendJSONSuccess(w, http.StatusOK, stats)
}

// CacheMetrics handles GET /api/admin/cache
func (h *SiteHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.config.Cache.Enabled || h.cache == nil {
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("cache is disabled"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, h.cache.GetMetricsSnapshot())
}

package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Block reasons reported by IsBot
const (
	ReasonKnownBot       = "known_bot_user_agent"
	ReasonSuspiciousUA   = "suspicious_user_agent"
	ReasonExcessiveRate  = "excessive_request_rate"
	defaultCleanupPeriod = 5 * time.Minute
)

// Redis keys for bot detection counters
const (
	BotDetectionsKey = "security:bot_detections"
	BotTimelineKey   = "security:bot_detections_timeline" // Sorted set scored by unix time
	BlockedIPsKey    = "security:blocked_ips"
	BlockReasonsKey  = "security:block_reasons"
)

// Crawlers we let through the contact form guard but never count as
// page views.
var legitimateBots = []string{
	"googlebot",
	"bingbot",
	"duckduckbot",
	"applebot",
	"slackbot",
	"twitterbot",
	"facebookexternalhit",
	"linkedinbot",
	"whatsapp",
	"telegrambot",
	"discordbot",
}

var maliciousBots = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python-requests",
	"go-http-client",
	"java/",
	"ruby",
	"php",
	"perl",
	"node-fetch",
	"axios",
	"headless",
}

// BotDetector flags automated clients by user agent and request rate
type BotDetector struct {
	requestTracker map[string]*requestHistory
	mu             sync.RWMutex

	maxRequestsPerMinute int
	cleanupInterval      time.Duration
	stop                 chan struct{}
	stopOnce             sync.Once
}

// requestHistory tracks request history for an IP
type requestHistory struct {
	requests []time.Time
	lastSeen time.Time
}

// NewBotDetector creates a detector and starts its cleanup loop.
// Call Close to stop it.
func NewBotDetector(maxRequestsPerMinute int) *BotDetector {
	bd := &BotDetector{
		requestTracker:       make(map[string]*requestHistory),
		maxRequestsPerMinute: maxRequestsPerMinute,
		cleanupInterval:      defaultCleanupPeriod,
		stop:                 make(chan struct{}),
	}

	go bd.cleanupOldEntries()

	return bd
}

// Close stops the cleanup loop
func (bd *BotDetector) Close() {
	bd.stopOnce.Do(func() { close(bd.stop) })
}

// IsBot checks if a request appears to be from a bot and returns the
// reason. Well-known search and link-preview crawlers are not bots here.
func (bd *BotDetector) IsBot(r *http.Request) (bool, string) {
	userAgent := r.UserAgent()

	if checkKnownBotUserAgent(userAgent) {
		return true, ReasonKnownBot
	}

	if checkSuspiciousUserAgent(userAgent) {
		return true, ReasonSuspiciousUA
	}

	if bd.checkRequestRate(ClientIP(r)) {
		return true, ReasonExcessiveRate
	}

	return false, ""
}

// IsCrawler reports whether the user agent belongs to any automated
// client, legitimate crawlers included. Page views from crawlers are not
// recorded.
func IsCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if strings.TrimSpace(ua) == "" {
		return true
	}
	for _, bot := range legitimateBots {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return checkKnownBotUserAgent(userAgent)
}

func checkKnownBotUserAgent(userAgent string) bool {
	userAgentLower := strings.ToLower(userAgent)

	for _, bot := range legitimateBots {
		if strings.Contains(userAgentLower, bot) {
			return false
		}
	}

	for _, pattern := range maliciousBots {
		if strings.Contains(userAgentLower, pattern) {
			return true
		}
	}

	return false
}

func checkSuspiciousUserAgent(userAgent string) bool {
	if len(userAgent) < 10 {
		return true
	}

	hasCommonBrowser := strings.Contains(userAgent, "Mozilla") ||
		strings.Contains(userAgent, "Chrome") ||
		strings.Contains(userAgent, "Safari") ||
		strings.Contains(userAgent, "Firefox") ||
		strings.Contains(userAgent, "Edge") ||
		strings.Contains(userAgent, "Opera")
	if hasCommonBrowser {
		return false
	}

	userAgentLower := strings.ToLower(userAgent)
	for _, service := range []string{"monitor", "uptime", "pingdom", "statuspage"} {
		if strings.Contains(userAgentLower, service) {
			return false
		}
	}
	for _, bot := range legitimateBots {
		if strings.Contains(userAgentLower, bot) {
			return false
		}
	}

	return true
}

// checkRequestRate records the request and reports whether the IP went
// over the per-minute budget
func (bd *BotDetector) checkRequestRate(ip string) bool {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	now := time.Now()
	oneMinuteAgo := now.Add(-1 * time.Minute)

	history, exists := bd.requestTracker[ip]
	if !exists {
		bd.requestTracker[ip] = &requestHistory{
			requests: []time.Time{now},
			lastSeen: now,
		}
		return false
	}

	recentRequests := history.requests[:0]
	for _, reqTime := range history.requests {
		if reqTime.After(oneMinuteAgo) {
			recentRequests = append(recentRequests, reqTime)
		}
	}

	recentRequests = append(recentRequests, now)
	history.requests = recentRequests
	history.lastSeen = now

	if len(recentRequests) > bd.maxRequestsPerMinute {
		log.Warn().
			Str("ip", ip).
			Int("requests", len(recentRequests)).
			Msg("Request rate limit exceeded - potential bot")
		return true
	}

	return false
}

func (bd *BotDetector) cleanupOldEntries() {
	ticker := time.NewTicker(bd.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-bd.stop:
			return
		case <-ticker.C:
			bd.purgeBefore(time.Now().Add(-10 * time.Minute))
		}
	}
}

func (bd *BotDetector) purgeBefore(cutoff time.Time) {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	for ip, history := range bd.requestTracker {
		if history.lastSeen.Before(cutoff) {
			delete(bd.requestTracker, ip)
		}
	}

	log.Debug().Int("tracked_ips", len(bd.requestTracker)).Msg("Cleaned up bot detection tracker")
}

// ClientIP extracts the client IP, preferring proxy headers
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetStats returns bot detection statistics
func (bd *BotDetector) GetStats() map[string]interface{} {
	bd.mu.RLock()
	defer bd.mu.RUnlock()

	return map[string]interface{}{
		"tracked_ips":             len(bd.requestTracker),
		"max_requests_per_minute": bd.maxRequestsPerMinute,
	}
}

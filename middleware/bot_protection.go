package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/CharlesToronto/brotherstudio/security"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const redisRecordTimeout = 2 * time.Second

// BotProtection is a middleware that blocks suspected bots
type BotProtection struct {
	detector *security.BotDetector
	enabled  bool
	redis    *redis.Client
}

// NewBotProtection creates a new bot protection middleware. rdb may be
// nil, in which case detections are only logged.
func NewBotProtection(detector *security.BotDetector, enabled bool, rdb *redis.Client) *BotProtection {
	return &BotProtection{
		detector: detector,
		enabled:  enabled,
		redis:    rdb,
	}
}

// Protect returns a middleware function that blocks bots
func (bp *BotProtection) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !bp.enabled {
			next.ServeHTTP(w, r)
			return
		}

		isBot, reason := bp.detector.IsBot(r)
		if !isBot {
			next.ServeHTTP(w, r)
			return
		}

		ip := security.ClientIP(r)
		log.Warn().
			Str("ip", ip).
			Str("user_agent", r.UserAgent()).
			Str("reason", reason).
			Str("path", r.URL.Path).
			Msg("Bot detected - request blocked")

		bp.record(ip, reason)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Bot detected",
			"message": "This request appears to be automated. If you believe this is an error, please email the studio directly.",
			"reason":  reason,
		})
	})
}

// record tracks the detection in Redis
func (bp *BotProtection) record(ip, reason string) {
	if bp.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisRecordTimeout)
	defer cancel()

	_, err := bp.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, security.BotDetectionsKey)
		pipe.ZAdd(ctx, security.BotTimelineKey, &redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: ip,
		})
		pipe.ZIncrBy(ctx, security.BlockedIPsKey, 1, ip)
		pipe.ZIncrBy(ctx, security.BlockReasonsKey, 1, reason)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to record bot detection")
	}
}

// GetStats returns bot detection statistics
func (bp *BotProtection) GetStats() map[string]interface{} {
	return bp.detector.GetStats()
}

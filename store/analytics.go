package store

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/CharlesToronto/brotherstudio/metrics"
	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/rs/zerolog/log"
)

const (
	dayKeyLayout      = "2006-01-02"
	visitTimeLayout   = "2006-01-02T15:04:05.000Z07:00"
	topPagesLimit     = 5
	rollingWindowDays = 7

	// Largest integer a JSON number carries exactly
	maxCount = 1 << 53
)

// analyticsDocument mirrors the analytics file on disk
type analyticsDocument struct {
	TotalPageViews  int64            `json:"totalPageViews"`
	UniqueVisitors  map[string]bool  `json:"uniqueVisitors"` // Values are always true
	PageViewsByPath map[string]int64 `json:"pageViewsByPath"`
	DailyPageViews  map[string]int64 `json:"dailyPageViews"` // Keyed by UTC day, YYYY-MM-DD
	LastVisitAt     *string          `json:"lastVisitAt"`
}

func newAnalyticsDocument() analyticsDocument {
	return analyticsDocument{
		UniqueVisitors:  map[string]bool{},
		PageViewsByPath: map[string]int64{},
		DailyPageViews:  map[string]int64{},
	}
}

// NormalizePath reduces a raw page path to the key used for per-path
// counts: fragment and query are dropped, trailing slashes are removed,
// and anything that is not an absolute path becomes "/".
// NormalizePath(NormalizePath(p)) == NormalizePath(p) for every p.
func NormalizePath(raw string) string {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, "/") {
		return "/"
	}

	if i := strings.IndexByte(value, '#'); i != -1 {
		value = value[:i]
	}
	if i := strings.IndexByte(value, '?'); i != -1 {
		value = value[:i]
	}

	// "/about//" and "/about/ " would otherwise need a second pass
	value = strings.TrimRightFunc(value, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})

	if value == "" {
		return "/"
	}
	return value
}

// IsTrackable reports whether a path should count as a page view.
// API, framework-internal and admin routes and the favicon are noise.
func IsTrackable(path string) bool {
	switch {
	case !strings.HasPrefix(path, "/"):
		return false
	case strings.HasPrefix(path, "/api"):
		return false
	case strings.HasPrefix(path, "/_next"):
		return false
	case strings.HasPrefix(path, "/admin"):
		return false
	case path == "/favicon.ico":
		return false
	}
	return true
}

// AnalyticsStore aggregates page views into a single JSON document.
// Writes go through a FIFO WriteQueue; reads are not queued and may
// observe the state before or after a pending write.
type AnalyticsStore struct {
	path      string
	queue     *WriteQueue
	ownsQueue bool
	now       func() time.Time
}

// AnalyticsOption configures an AnalyticsStore
type AnalyticsOption func(*AnalyticsStore)

// WithWriteQueue injects the queue used to serialize writes. The store
// does not close an injected queue.
func WithWriteQueue(q *WriteQueue) AnalyticsOption {
	return func(s *AnalyticsStore) {
		s.queue = q
		s.ownsQueue = false
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) AnalyticsOption {
	return func(s *AnalyticsStore) {
		s.now = now
	}
}

// NewAnalyticsStore creates a store backed by the document at path.
func NewAnalyticsStore(path string, opts ...AnalyticsOption) *AnalyticsStore {
	s := &AnalyticsStore{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = NewWriteQueue("analytics")
		s.ownsQueue = true
	}
	return s
}

// Close waits for queued writes and stops the store's own queue
func (s *AnalyticsStore) Close() {
	if s.ownsQueue {
		s.queue.Close()
	}
}

// Path returns the location of the backing document
func (s *AnalyticsStore) Path() string {
	return s.path
}

func (s *AnalyticsStore) read() analyticsDocument {
	if err := ensureFile(s.path, func() interface{} { return newAnalyticsDocument() }); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to initialize analytics file, using empty aggregate")
		metrics.AnalyticsReadFallbacks.Inc()
		return newAnalyticsDocument()
	}

	raw, err := readRaw(s.path)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to read analytics file, using empty aggregate")
		metrics.AnalyticsReadFallbacks.Inc()
		return newAnalyticsDocument()
	}

	return parseAnalytics(raw)
}

// parseAnalytics validates a decoded document. A non-object document is
// replaced wholesale by the empty aggregate; an object is normalized
// field by field and invalid fields fall back to their zero value.
func parseAnalytics(raw interface{}) analyticsDocument {
	top, ok := raw.(map[string]interface{})
	if !ok {
		return newAnalyticsDocument()
	}

	doc := analyticsDocument{
		TotalPageViews:  normalizeCount(top["totalPageViews"]),
		UniqueVisitors:  normalizeVisitors(top["uniqueVisitors"]),
		PageViewsByPath: normalizeCounts(top["pageViewsByPath"]),
		DailyPageViews:  normalizeCounts(top["dailyPageViews"]),
	}
	if last, ok := top["lastVisitAt"].(string); ok {
		doc.LastVisitAt = &last
	}
	return doc
}

func normalizeCount(value interface{}) int64 {
	n, ok := value.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > maxCount {
		return 0
	}
	return int64(math.Floor(n))
}

func normalizeCounts(value interface{}) map[string]int64 {
	counts := map[string]int64{}

	record, ok := value.(map[string]interface{})
	if !ok {
		return counts
	}

	for key, v := range record {
		amount := normalizeCount(v)
		if key == "" || amount == 0 {
			continue
		}
		counts[key] = amount
	}
	return counts
}

func normalizeVisitors(value interface{}) map[string]bool {
	visitors := map[string]bool{}

	record, ok := value.(map[string]interface{})
	if !ok {
		return visitors
	}

	for key := range record {
		if key == "" {
			continue
		}
		visitors[key] = true
	}
	return visitors
}

// RecordPageView applies one page view. Blank visitor ids are ignored.
// The read-increment-write cycle runs on the write queue, so concurrent
// calls never lose an increment. Persistence failures are logged and
// dropped.
func (s *AnalyticsStore) RecordPageView(path, visitorID string) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return
	}

	path = NormalizePath(path)

	err := s.queue.Do(func() error {
		now := s.now().UTC()
		dayKey := now.Format(dayKeyLayout)
		visitedAt := now.Format(visitTimeLayout)

		doc := s.read()
		doc.TotalPageViews++
		doc.UniqueVisitors[visitorID] = true
		doc.PageViewsByPath[path]++
		doc.DailyPageViews[dayKey]++
		doc.LastVisitAt = &visitedAt

		if err := writeFile(s.path, doc); err != nil {
			return &WriteError{Path: s.path, Err: err}
		}
		return nil
	})
	if err != nil {
		metrics.AnalyticsWriteFailures.Inc()
		log.Warn().Err(err).Str("path", path).Msg("Failed to record page view")
		return
	}

	metrics.PageViewsRecorded.Inc()
}

// Summary computes the admin view of the aggregate
func (s *AnalyticsStore) Summary() model.AnalyticsSummary {
	doc := s.read()
	return summarize(doc, s.now().UTC())
}

func summarize(doc analyticsDocument, today time.Time) model.AnalyticsSummary {
	var last7Days int64
	for i := 0; i < rollingWindowDays; i++ {
		key := today.AddDate(0, 0, -i).Format(dayKeyLayout)
		last7Days += doc.DailyPageViews[key]
	}

	return model.AnalyticsSummary{
		TotalPageViews:     doc.TotalPageViews,
		UniqueVisitors:     len(doc.UniqueVisitors),
		PageViewsLast7Days: last7Days,
		LastVisitAt:        doc.LastVisitAt,
		TopPages:           topPages(doc.PageViewsByPath, doc.TotalPageViews),
	}
}

// topPages ranks paths by views. Equal counts are ordered by path so the
// result is deterministic.
func topPages(byPath map[string]int64, total int64) []model.TopPage {
	pages := make([]model.TopPage, 0, len(byPath))
	for path, views := range byPath {
		pages = append(pages, model.TopPage{Path: path, Views: views})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Views != pages[j].Views {
			return pages[i].Views > pages[j].Views
		}
		return pages[i].Path < pages[j].Path
	})

	if len(pages) > topPagesLimit {
		pages = pages[:topPagesLimit]
	}

	for i := range pages {
		pages[i].SharePercent = sharePercent(pages[i].Views, total)
	}
	return pages
}

// sharePercent truncates to one decimal so that the shares of distinct
// paths never add up to more than 100.
func sharePercent(views, total int64) float64 {
	if total == 0 {
		return 0
	}
	share := math.Floor(float64(views)*1000/float64(total)) / 10
	return math.Min(share, 100)
}

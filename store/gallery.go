package store

import (
	"fmt"
	"strings"

	"github.com/CharlesToronto/brotherstudio/metrics"
	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type galleryDocument struct {
	Items []model.GalleryItem `json:"items"`
}

// defaultGalleryItems is the placeholder portfolio shown until the
// studio uploads its own renders.
func defaultGalleryItems() []model.GalleryItem {
	items := make([]model.GalleryItem, 0, 9)
	for i := 1; i <= 9; i++ {
		n := fmt.Sprintf("%02d", i)
		items = append(items, model.GalleryItem{
			ID:        n,
			Src:       "/gallery/" + n + ".svg",
			Architect: "Architect / Studio " + n,
		})
	}
	return items
}

// GalleryStore persists the ordered gallery collection in a single JSON
// document.
//
// Mutations are plain read-modify-write cycles with no serialization:
// concurrent admin writes race and the last write wins.
type GalleryStore struct {
	path  string
	newID func() string
}

// GalleryOption configures a GalleryStore
type GalleryOption func(*GalleryStore)

// WithIDGenerator replaces the UUID v4 generator used by Add.
func WithIDGenerator(fn func() string) GalleryOption {
	return func(s *GalleryStore) {
		s.newID = fn
	}
}

// NewGalleryStore creates a store backed by the document at path. The
// file is created lazily on first access.
func NewGalleryStore(path string, opts ...GalleryOption) *GalleryStore {
	s := &GalleryStore{
		path:  path,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the backing document
func (s *GalleryStore) Path() string {
	return s.path
}

// read never fails: any problem with the file yields the default
// collection. A document with the right top-level shape keeps only its
// well-formed entries.
func (s *GalleryStore) read() []model.GalleryItem {
	if err := ensureFile(s.path, func() interface{} {
		return galleryDocument{Items: defaultGalleryItems()}
	}); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to initialize gallery file, using defaults")
		metrics.GalleryReadFallbacks.Inc()
		return defaultGalleryItems()
	}

	raw, err := readRaw(s.path)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to read gallery file, using defaults")
		metrics.GalleryReadFallbacks.Inc()
		return defaultGalleryItems()
	}

	items, ok := parseGalleryItems(raw)
	if !ok {
		log.Warn().Str("path", s.path).Msg("Gallery file has an unexpected shape, using defaults")
		metrics.GalleryReadFallbacks.Inc()
		return defaultGalleryItems()
	}
	return items
}

func parseGalleryItems(raw interface{}) ([]model.GalleryItem, bool) {
	top, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false
	}

	entries, ok := top["items"].([]interface{})
	if !ok {
		return nil, false
	}

	items := make([]model.GalleryItem, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		id, idOK := fields["id"].(string)
		src, srcOK := fields["src"].(string)
		architect, architectOK := fields["architect"].(string)
		if !idOK || !srcOK || !architectOK {
			continue
		}

		items = append(items, model.GalleryItem{ID: id, Src: src, Architect: architect})
	}
	return items, true
}

func (s *GalleryStore) write(items []model.GalleryItem) error {
	if items == nil {
		items = []model.GalleryItem{}
	}
	if err := writeFile(s.path, galleryDocument{Items: items}); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}

// List returns the current ordered collection
func (s *GalleryStore) List() []model.GalleryItem {
	return s.read()
}

// Get looks up a single item by id
func (s *GalleryStore) Get(id string) (model.GalleryItem, bool) {
	for _, item := range s.read() {
		if item.ID == id {
			return item, true
		}
	}
	return model.GalleryItem{}, false
}

// Add appends a new item. A blank ID is replaced by a generated one.
func (s *GalleryStore) Add(input model.NewGalleryItem) (model.GalleryItem, error) {
	items := s.read()

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = s.newID()
	} else if indexOf(items, id) != -1 {
		metrics.GalleryMutations.WithLabelValues("add", "invalid").Inc()
		return model.GalleryItem{}, newValidationError("add", "Item id already exists")
	}

	item := model.GalleryItem{
		ID:        id,
		Src:       input.Src,
		Architect: input.Architect,
	}

	items = append(items, item)
	if err := s.write(items); err != nil {
		metrics.GalleryMutations.WithLabelValues("add", "error").Inc()
		return model.GalleryItem{}, err
	}

	metrics.GalleryMutations.WithLabelValues("add", "ok").Inc()
	log.Info().Str("id", item.ID).Str("src", item.Src).Msg("Gallery item added")
	return item, nil
}

// Update merges the non-nil fields of patch into the item with the given
// id. It returns ErrNotFound when no such item exists.
func (s *GalleryStore) Update(id string, patch model.GalleryPatch) (model.GalleryItem, error) {
	items := s.read()

	index := indexOf(items, id)
	if index == -1 {
		metrics.GalleryMutations.WithLabelValues("update", "not_found").Inc()
		return model.GalleryItem{}, ErrNotFound
	}

	updated := items[index]
	if patch.Src != nil {
		updated.Src = *patch.Src
	}
	if patch.Architect != nil {
		updated.Architect = *patch.Architect
	}

	items[index] = updated
	if err := s.write(items); err != nil {
		metrics.GalleryMutations.WithLabelValues("update", "error").Inc()
		return model.GalleryItem{}, err
	}

	metrics.GalleryMutations.WithLabelValues("update", "ok").Inc()
	log.Info().Str("id", id).Msg("Gallery item updated")
	return updated, nil
}

// Delete removes the item with the given id and returns it. The bool is
// false when nothing matched, in which case the file is not rewritten.
// The backing image asset is left for the caller to clean up.
func (s *GalleryStore) Delete(id string) (model.GalleryItem, bool, error) {
	items := s.read()

	index := indexOf(items, id)
	if index == -1 {
		metrics.GalleryMutations.WithLabelValues("delete", "not_found").Inc()
		return model.GalleryItem{}, false, nil
	}

	removed := items[index]
	next := make([]model.GalleryItem, 0, len(items)-1)
	for _, item := range items {
		if item.ID != id {
			next = append(next, item)
		}
	}

	if err := s.write(next); err != nil {
		metrics.GalleryMutations.WithLabelValues("delete", "error").Inc()
		return model.GalleryItem{}, false, err
	}

	metrics.GalleryMutations.WithLabelValues("delete", "ok").Inc()
	log.Info().Str("id", id).Msg("Gallery item deleted")
	return removed, true, nil
}

// Reorder replaces the collection order. order must be a permutation of
// the current ids; anything else is a ValidationError and nothing is
// written.
func (s *GalleryStore) Reorder(order []string) ([]model.GalleryItem, error) {
	items := s.read()

	if err := validateOrder(items, order); err != nil {
		metrics.GalleryMutations.WithLabelValues("reorder", "invalid").Inc()
		return nil, err
	}

	byID := make(map[string]model.GalleryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	next := make([]model.GalleryItem, 0, len(order))
	for _, id := range order {
		next = append(next, byID[id])
	}

	if err := s.write(next); err != nil {
		metrics.GalleryMutations.WithLabelValues("reorder", "error").Inc()
		return nil, err
	}

	metrics.GalleryMutations.WithLabelValues("reorder", "ok").Inc()
	log.Info().Int("items", len(next)).Msg("Gallery reordered")
	return next, nil
}

func validateOrder(items []model.GalleryItem, order []string) error {
	if len(order) != len(items) {
		return newValidationError("reorder", "Order must include all items")
	}

	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return newValidationError("reorder", "Order contains duplicates")
		}
		seen[id] = struct{}{}
	}

	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[item.ID] = struct{}{}
	}
	for _, id := range order {
		if _, ok := existing[id]; !ok {
			return newValidationError("reorder", "Order contains unknown item")
		}
	}
	return nil
}

func indexOf(items []model.GalleryItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

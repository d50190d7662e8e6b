package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/CharlesToronto/brotherstudio/assets"
	"github.com/CharlesToronto/brotherstudio/model"
	"github.com/CharlesToronto/brotherstudio/store"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxJSONBodyBytes = 64 << 10

var (
	errMissingFile      = errors.New("Missing file")
	errMissingArchitect = errors.New("Missing architect")
	errInvalidFileType  = errors.New("Invalid file type")
	errInvalidForm      = errors.New("Invalid form data")
	errFileTooLarge     = errors.New("File too large")
	errInvalidOrder     = errors.New("Invalid order")
	errInvalidArchitect = errors.New("Invalid architect")
	errNotFound         = errors.New("Not found")
)

// upload is an image read from a multipart request
type upload struct {
	data []byte
	ext  string
}

// parseMultipart reads the multipart body, capped at the configured
// upload size
func (h *SiteHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (int, error) {
	maxBytes := int64(h.config.WebServer.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errFileTooLarge
		}
		return http.StatusBadRequest, errInvalidForm
	}
	return 0, nil
}

// formImage returns the "file" field of a parsed multipart form. The
// returned error is safe to show to clients.
func formImage(r *http.Request) (*upload, int, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, errMissingFile
	}
	defer file.Close()

	if !assets.IsImage(header.Header.Get("Content-Type")) {
		return nil, http.StatusBadRequest, errInvalidFileType
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, errInvalidForm
	}

	// The saved extension comes from the bytes, never the filename
	ext, err := assets.DetectImage(data)
	if err != nil {
		return nil, http.StatusBadRequest, errInvalidFileType
	}

	return &upload{data: data, ext: ext}, 0, nil
}

// ListGallery handles GET /api/gallery
func (h *SiteHandler) ListGallery(w http.ResponseWriter, r *http.Request) {
	SendJSONSuccess(w, http.StatusOK, model.GalleryListResponse{Items: h.gallery.List()})
}

// CreateGalleryItem handles POST /api/gallery (multipart: file, architect)
func (h *SiteHandler) CreateGalleryItem(w http.ResponseWriter, r *http.Request) {
	if status, err := h.parseMultipart(w, r); err != nil {
		SendJSONError(w, status, err, "")
		return
	}

	up, status, err := formImage(r)
	if errors.Is(err, errMissingFile) {
		SendJSONError(w, status, err, "")
		return
	}
	architect := strings.TrimSpace(r.FormValue("architect"))
	if architect == "" {
		SendJSONError(w, http.StatusBadRequest, errMissingArchitect, "")
		return
	}
	if err != nil {
		SendJSONError(w, status, err, "")
		return
	}

	id := uuid.New().String()
	src, err := h.uploads.SaveFor(id, up.data, up.ext)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save gallery image")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to save image")
		return
	}

	item, err := h.gallery.Add(model.NewGalleryItem{ID: id, Src: src, Architect: architect})
	if err != nil {
		// Do not leave an orphaned upload behind
		h.removeUpload(src)
		if store.IsValidation(err) {
			SendJSONError(w, http.StatusConflict, err, "")
			return
		}
		log.Error().Err(err).Str("src", src).Msg("Failed to add gallery item")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to save gallery")
		return
	}

	SendJSONSuccess(w, http.StatusCreated, model.GalleryItemResponse{Item: item})
}

// ReorderGallery handles PATCH /api/gallery {"order": [...]}
func (h *SiteHandler) ReorderGallery(w http.ResponseWriter, r *http.Request) {
	var input model.ReorderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&input); err != nil || input.Order == nil {
		SendJSONError(w, http.StatusBadRequest, errInvalidOrder, "")
		return
	}

	items, err := h.gallery.Reorder(input.Order)
	if err != nil {
		if store.IsValidation(err) {
			SendJSONError(w, http.StatusBadRequest, err, "")
			return
		}
		log.Error().Err(err).Msg("Failed to reorder gallery")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to reorder")
		return
	}

	SendJSONSuccess(w, http.StatusOK, model.GalleryListResponse{Items: items})
}

// UpdateGalleryCaption handles PATCH /api/gallery/{id} {"architect": "..."}
func (h *SiteHandler) UpdateGalleryCaption(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input model.CaptionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&input); err != nil ||
		input.Architect == nil || strings.TrimSpace(*input.Architect) == "" {
		SendJSONError(w, http.StatusBadRequest, errInvalidArchitect, "")
		return
	}

	architect := strings.TrimSpace(*input.Architect)
	item, err := h.gallery.Update(id, model.GalleryPatch{Architect: &architect})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, errNotFound, "")
			return
		}
		log.Error().Err(err).Str("id", id).Msg("Failed to update gallery caption")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update item")
		return
	}

	SendJSONSuccess(w, http.StatusOK, model.GalleryItemResponse{Item: item})
}

// DeleteGalleryItem handles DELETE /api/gallery/{id}. The uploaded image
// is removed after the record; images outside /uploads/ are left alone.
func (h *SiteHandler) DeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	removed, ok, err := h.gallery.Delete(id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to delete gallery item")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to delete item")
		return
	}
	if !ok {
		SendJSONError(w, http.StatusNotFound, errNotFound, "")
		return
	}

	h.removeUpload(removed.Src)

	SendJSONSuccess(w, http.StatusOK, model.OKResponse{OK: true})
}

// ReplaceGalleryImage handles POST /api/gallery/{id}/image (multipart: file)
func (h *SiteHandler) ReplaceGalleryImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	current, ok := h.gallery.Get(id)
	if !ok {
		SendJSONError(w, http.StatusNotFound, errNotFound, "")
		return
	}

	if status, err := h.parseMultipart(w, r); err != nil {
		SendJSONError(w, status, err, "")
		return
	}

	up, status, err := formImage(r)
	if err != nil {
		SendJSONError(w, status, err, "")
		return
	}

	src, err := h.uploads.SaveFor(id, up.data, up.ext)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to save replacement image")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to save image")
		return
	}

	updated, err := h.gallery.Update(id, model.GalleryPatch{Src: &src})
	if err != nil {
		h.removeUpload(src)
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, errNotFound, "")
			return
		}
		log.Error().Err(err).Str("id", id).Msg("Failed to update gallery image")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update item")
		return
	}

	h.removeUpload(current.Src)

	SendJSONSuccess(w, http.StatusOK, model.GalleryItemResponse{Item: updated})
}

// removeUpload deletes an uploaded image, ignoring non-upload references
func (h *SiteHandler) removeUpload(src string) {
	if err := h.uploads.Delete(src); err != nil {
		log.Warn().Err(err).Str("src", src).Msg("Failed to remove uploaded image")
	}
}

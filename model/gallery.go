package model

// GalleryItem is one displayed image with its caption
type GalleryItem struct {
	ID        string `json:"id"`
	Src       string `json:"src"`       // Public path of the image asset (e.g. /uploads/<file>)
	Architect string `json:"architect"` // Free-text caption
}

// NewGalleryItem is the input for adding an item. ID is optional.
type NewGalleryItem struct {
	ID        string `json:"id,omitempty"`
	Src       string `json:"src"`
	Architect string `json:"architect"`
}

// GalleryPatch holds the fields to merge into an existing item.
// A nil field is left unchanged.
type GalleryPatch struct {
	Src       *string `json:"src,omitempty"`
	Architect *string `json:"architect,omitempty"`
}

// GalleryListResponse is returned by GET /api/gallery and PATCH /api/gallery
type GalleryListResponse struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItemResponse wraps a single stored item
type GalleryItemResponse struct {
	Item GalleryItem `json:"item"`
}

// ReorderRequest is the body of PATCH /api/gallery
type ReorderRequest struct {
	Order []string `json:"order"`
}

// CaptionRequest is the body of PATCH /api/gallery/{id}
type CaptionRequest struct {
	Architect *string `json:"architect"`
}

package v1alpha1

import "time"

// ContentKind classifies a content item by how it is rendered
type ContentKind string

const (
	// ContentImage is a raster image drawn full-frame
	ContentImage ContentKind = "image"
	// ContentText is a plain-text file rendered as wrapped lines
	ContentText ContentKind = "text"
	// ContentDocument is a paged document (rendered as an info card when
	// no page rasterizer is available)
	ContentDocument ContentKind = "document"
	// ContentGeneric is any other file, rendered as an info card
	ContentGeneric ContentKind = "generic"
)

// ContentSource records how a content item entered the store
type ContentSource string

const (
	// SourceUpload marks items received through the upload API
	SourceUpload ContentSource = "upload"
	// SourceExisting marks items already present in the watched folder
	SourceExisting ContentSource = "pre-existing"
	// SourceSynthetic marks generated placeholder content
	SourceSynthetic ContentSource = "synthetic"
)

// ContentItem describes one file in the watched store
type ContentItem struct {
	// Name is the stable filename identifying the item
	Name string `json:"name"`
	// Kind classifies how the item is rendered
	Kind ContentKind `json:"kind"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
	// ModifiedAt is the file modification timestamp
	ModifiedAt time.Time `json:"modifiedAt"`
	// Source records how the item arrived
	Source ContentSource `json:"source"`
}

// ContentItemList is the response for content listing
type ContentItemList struct {
	// Items holds the content metadata, newest first
	Items []ContentItem `json:"items"`
	// TotalCount is the number of items in the store
	TotalCount int `json:"totalCount"`
}

// UploadResponse confirms a stored upload
type UploadResponse struct {
	// Message is a human-readable confirmation
	Message string `json:"message"`
	// Filename is the name the file was stored under
	Filename string `json:"filename"`
	// Size is the stored size in bytes
	Size int64 `json:"size"`
}

// TextUploadRequest uploads literal text content as a .txt item
type TextUploadRequest struct {
	// Content is the text body to store
	Content string `json:"content"`
	// Filename optionally names the stored file
	Filename string `json:"filename,omitempty"`
}

// CleanupRequest trims the store down to the most recent files
type CleanupRequest struct {
	// KeepCount is how many of the newest files to retain
	KeepCount int `json:"keepCount"`
}

// CleanupResponse reports the result of a cleanup
type CleanupResponse struct {
	// Message is a human-readable summary
	Message string `json:"message"`
	// FilesRemoved names the deleted files
	FilesRemoved []string `json:"filesRemoved"`
	// FilesKept is how many files remain
	FilesKept int `json:"filesKept"`
}

package model

// AssetClass tells whether a stored asset was classified as a logo.
type AssetClass string

const (
	// ClassLogo marks an asset the logo classifier accepted.
	ClassLogo AssetClass = "logo"

	// ClassMedia marks every other stored image.
	ClassMedia AssetClass = "media"
)

// AssetRecord describes one stored, content-unique image.
type AssetRecord struct {
	// Hash is the hex digest of the raw downloaded bytes.
	Hash string `json:"hash"`

	// Class is logo or media.
	Class AssetClass `json:"class"`

	// Key is the storage key relative to the output root,
	// e.g. "media/logos/acme-logo-1a2b3c4d.png".
	Key string `json:"key"`

	// Filename is the last element of Key.
	Filename string `json:"filename"`

	// SourceURL is the first URL that produced these bytes.
	SourceURL string `json:"source_url"`

	// ContentType is the MIME type reported by the server or inferred
	// from the URL extension.
	ContentType string `json:"content_type"`

	// Size is the number of bytes stored.
	Size int64 `json:"size"`

	// OriginalSize is the number of bytes downloaded.
	OriginalSize int64 `json:"original_size"`

	// Normalized is true when the stored bytes are the normalizer's output.
	Normalized bool `json:"normalized"`

	// Width and Height are the stored image dimensions, 0 when unknown.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// VideoRef is a video URL recorded by reference only.
type VideoRef struct {
	Ordinal int    `json:"ordinal"`
	URL     string `json:"url"`
}

// AssetStats are the counters the asset pipeline keeps.
type AssetStats struct {
	ImagesDownloaded  int `json:"images_downloaded"`
	ImagesOptimized   int `json:"images_optimized"`
	LogosDetected     int `json:"logos_detected"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	FailedDownloads   int `json:"failed_downloads"`
	NonImageSkipped   int `json:"non_image_skipped"`
	Filtered          int `json:"filtered"`
	VideosProcessed   int `json:"videos_processed"`
}

// OutcomeKind is what happened to one media URL.
type OutcomeKind string

// Media outcome kinds.
const (
	OutcomeStored    OutcomeKind = "stored"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeNotImage  OutcomeKind = "not_image"
	OutcomeFiltered  OutcomeKind = "filtered"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the per-URL result of the asset pipeline.
type Outcome struct {
	URL  string      `json:"url"`
	Kind OutcomeKind `json:"kind"`
	Hash string      `json:"hash,omitempty"`
	// Error carries the failure message for OutcomeFailed.
	Error string `json:"error,omitempty"`
}

// AssetManifest is the output of the asset pipeline.
type AssetManifest struct {
	// Assets maps content hash to record.
	Assets map[string]*AssetRecord `json:"assets"`

	// Order lists hashes in insertion order.
	Order []string `json:"order"`

	// Videos are the referenced videos, numbered from 1.
	Videos []VideoRef `json:"videos,omitempty"`

	// Outcomes lists what happened to each media URL, in input order.
	Outcomes []Outcome `json:"outcomes,omitempty"`

	Stats AssetStats `json:"stats"`
}

// NewAssetManifest creates an empty manifest.
func NewAssetManifest() *AssetManifest {
	return &AssetManifest{
		Assets:   make(map[string]*AssetRecord),
		Order:    make([]string, 0),
		Videos:   make([]VideoRef, 0),
		Outcomes: make([]Outcome, 0),
	}
}

// Has reports whether an asset with the given hash is already stored.
func (m *AssetManifest) Has(hash string) bool {
	_, ok := m.Assets[hash]
	return ok
}

// Add inserts a record. It returns false and leaves the manifest unchanged
// when the hash is already present.
func (m *AssetManifest) Add(rec *AssetRecord) bool {
	if m.Has(rec.Hash) {
		return false
	}
	m.Assets[rec.Hash] = rec
	m.Order = append(m.Order, rec.Hash)
	return true
}

// Ordered returns asset records in insertion order.
func (m *AssetManifest) Ordered() []*AssetRecord {
	out := make([]*AssetRecord, 0, len(m.Order))
	for _, h := range m.Order {
		out = append(out, m.Assets[h])
	}
	return out
}

// Logos returns the records classified as logos, in insertion order.
func (m *AssetManifest) Logos() []*AssetRecord {
	out := make([]*AssetRecord, 0)
	for _, rec := range m.Ordered() {
		if rec.Class == ClassLogo {
			out = append(out, rec)
		}
	}
	return out
}

// TotalBytes is the sum of stored sizes.
func (m *AssetManifest) TotalBytes() int64 {
	var total int64
	for _, rec := range m.Assets {
		total += rec.Size
	}
	return total
}

package model

// BrandBrief is a best-effort description of a brand inferred from the
// text of its website.
type BrandBrief struct {
	Name     string   `json:"name,omitempty"`
	Tagline  string   `json:"tagline,omitempty"`
	Mission  string   `json:"mission,omitempty"`
	Services []string `json:"services,omitempty"`
	Audience []string `json:"audience,omitempty"`
	Tone     []string `json:"tone,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Fonts    []string `json:"fonts,omitempty"`
}

// IsEmpty reports whether nothing could be inferred.
func (b *BrandBrief) IsEmpty() bool {
	return b == nil || (b.Name == "" && b.Tagline == "" && b.Mission == "" &&
		len(b.Services) == 0 && len(b.Audience) == 0 && len(b.Tone) == 0 &&
		len(b.Colors) == 0 && len(b.Fonts) == 0)
}

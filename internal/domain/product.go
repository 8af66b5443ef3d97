package domain

// MediaType classifies a stored upload
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// DefaultSizes are assigned to a product created without explicit sizes
var DefaultSizes = []string{"S", "M", "L"}

// Product represents a product in the catalog
type Product struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	Media       []MediaRef `json:"media"`
	Sizes       []string   `json:"sizes"`
	Description string     `json:"description"`
	Reviews     []Review   `json:"reviews"`
}

// MediaRef points at an uploaded file owned by a product
type MediaRef struct {
	Type       MediaType `json:"type"`
	URL        string    `json:"url"`
	StoredName string    `json:"storedName"`
}

// Review is a customer review attached to a product
type Review struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SetMedia replaces the media list and recomputes the primary image.
// An empty list falls back to placeholder.
func (p *Product) SetMedia(media []MediaRef, placeholder string) {
	p.Media = media
	if len(media) > 0 {
		p.Image = media[0].URL
		return
	}
	p.Image = placeholder
}

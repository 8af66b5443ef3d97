package service

import "shopfront/internal/domain"

// DefaultCatalog returns the products written to an empty store on first start
func DefaultCatalog(placeholder string) []domain.Product {
	catalog := []domain.Product{
		{
			ID:          1,
			Name:        "Classic Cotton Tee",
			Price:       19.99,
			Category:    "T-Shirts",
			Sizes:       []string{"S", "M", "L", "XL"},
			Description: "Soft everyday tee in heavyweight cotton.",
		},
		{
			ID:          2,
			Name:        "Denim Jacket",
			Price:       79.5,
			Category:    "Jackets",
			Sizes:       []string{"M", "L", "XL"},
			Description: "Washed denim with a relaxed fit.",
		},
		{
			ID:          3,
			Name:        "Canvas Sneakers",
			Price:       54,
			Category:    "Shoes",
			Sizes:       []string{"40", "41", "42", "43", "44"},
			Description: "Low-top sneakers with a vulcanised sole.",
		},
		{
			ID:          4,
			Name:        "Wool Beanie",
			Price:       15,
			Category:    "Accessories",
			Sizes:       []string{"One Size"},
			Description: "Ribbed merino beanie.",
		},
	}

	for i := range catalog {
		catalog[i].SetMedia([]domain.MediaRef{}, placeholder)
		catalog[i].Reviews = []domain.Review{}
	}
	return catalog
}

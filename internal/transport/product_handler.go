package transport

import (
	"errors"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"shopfront/internal/domain"
	"shopfront/internal/media"
	"shopfront/internal/middleware"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// mediaFields are the multipart fields carrying uploads, read in this order
var mediaFields = []string{"media", "media[]"}

const (
	multipartMemoryCap  = 32 << 20
	requiredFieldReason = "This field is required"
)

// ProductForm holds the text fields of a product form. Nil means the field was absent.
type ProductForm struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,min=1,max=100"`
	Sizes       []string `json:"sizes" validate:"omitempty,max=50,dive,min=1,max=20"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
}

// ReviewRequest represents the review request payload
type ReviewRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ProductResponse wraps a product returned from a mutation
type ProductResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/reviews", h.AddReview)
	})
}

// List returns the whole catalog
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get returns one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles a multipart product form with optional media files
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, files, ok := h.readProductForm(w, r)
	if !ok {
		return
	}
	defer closeFiles(files)

	var missing []middleware.ValidationError
	if form.Name == nil {
		missing = append(missing, middleware.ValidationError{Field: "name", Message: requiredFieldReason})
	}
	if form.Price == nil {
		missing = append(missing, middleware.ValidationError{Field: "price", Message: requiredFieldReason})
	}
	if form.Category == nil {
		missing = append(missing, middleware.ValidationError{Field: "category", Message: requiredFieldReason})
	}
	if len(missing) > 0 {
		middleware.RespondWithValidationErrors(w, missing)
		return
	}

	product, err := h.catalog.Create(r.Context(), form.input(), mediaFiles(files))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{Message: "Product created", Product: product})
}

// Update applies the fields present in the form
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	form, files, ok := h.readProductForm(w, r)
	if !ok {
		return
	}
	defer closeFiles(files)

	product, err := h.catalog.Update(r.Context(), id, form.input(), mediaFiles(files))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product updated", Product: product})
}

// Delete removes a product and its files
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	product, err := h.catalog.Delete(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product deleted", Product: product})
}

// AddReview appends a customer review
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add review")
		return
	}

	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Review validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalog.AddReview(r.Context(), id, service.ReviewInput{
		Name:    req.Name,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add review")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{Message: "Review added", Product: product})
}

// readProductForm parses a JSON, multipart or urlencoded body. On failure
// it has already written the response.
func (h *ProductHandler) readProductForm(w http.ResponseWriter, r *http.Request) (ProductForm, uploadedFiles, bool) {
	var form ProductForm

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		if err := middleware.DecodeAndValidate(r, &form); err != nil {
			h.logger.Debug("Product validation failed", zap.Error(err))
			middleware.RespondWithDecodeError(w, err)
			return form, nil, false
		}
		return form, nil, true
	}

	err := r.ParseMultipartForm(multipartMemoryCap)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondWithServiceError(w, h.logger, err, "failed to read form")
			return form, nil, false
		}
		h.logger.Debug("Failed to parse product form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form data")
		return form, nil, false
	}

	form.Name = formValue(r, "name")
	form.Category = formValue(r, "category")
	form.Description = formValue(r, "description")
	if sizes := formValue(r, "sizes"); sizes != nil {
		form.Sizes = splitSizes(r.PostForm["sizes"])
	}
	if raw := formValue(r, "price"); raw != nil {
		price, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
				{Field: "price", Message: "Price must be a number"},
			})
			return form, nil, false
		}
		form.Price = &price
	}

	if err := middleware.ValidateRequest(form); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return form, nil, false
	}

	if r.MultipartForm == nil {
		return form, nil, true
	}

	var headers []*multipart.FileHeader
	for _, field := range mediaFields {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	files := make(uploadedFiles, 0, len(headers))
	for _, header := range headers {
		body, err := header.Open()
		if err != nil {
			closeFiles(files)
			h.logger.Error("Failed to open uploaded file", zap.String("filename", header.Filename), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read upload")
			return form, nil, false
		}
		files = append(files, openedFile{header: header, body: body})
	}
	return form, files, true
}

func (f ProductForm) input() service.ProductInput {
	return service.ProductInput{
		Name:        f.Name,
		Price:       f.Price,
		Category:    f.Category,
		Sizes:       f.Sizes,
		Description: f.Description,
	}
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// splitSizes accepts both repeated fields and comma separated lists
func splitSizes(values []string) []string {
	var sizes []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				sizes = append(sizes, part)
			}
		}
	}
	return sizes
}

// openedFile ties an uploaded part to its open handle
type openedFile struct {
	header *multipart.FileHeader
	body   io.ReadCloser
}

type uploadedFiles []openedFile

func closeFiles(files uploadedFiles) {
	for _, f := range files {
		if f.body != nil {
			f.body.Close()
		}
	}
}

func mediaFiles(files uploadedFiles) []media.File {
	out := make([]media.File, 0, len(files))
	for _, f := range files {
		out = append(out, media.File{
			Name:        f.header.Filename,
			ContentType: f.header.Header.Get("Content-Type"),
			Body:        f.body,
		})
	}
	return out
}

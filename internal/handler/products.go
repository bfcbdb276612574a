package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/service"
)

// ProductsHandler serves the product collection: listing, searching,
// filtering by category, and adding new products.
type ProductsHandler struct {
	inventory *service.InventoryService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(inventory *service.InventoryService, authz *security.AuthorizationService, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		inventory: inventory,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles GET and POST /api/products
func (h *ProductsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermViewProducts) == nil {
		return
	}

	var (
		products []*domain.Product
		err      error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		products, err = h.inventory.Search(r.URL.Query().Get("q"))
	case r.URL.Query().Get("category") != "":
		category := domain.Category(r.URL.Query().Get("category"))
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		products, err = h.inventory.ByCategory(category)
	default:
		products, err = h.inventory.List()
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermManageProducts) == nil {
		return
	}

	var draft service.ProductDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	product, err := h.inventory.Add(draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// ProductDetailHandler serves a single product: get, update, delete
type ProductDetailHandler struct {
	inventory *service.InventoryService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewProductDetailHandler creates a new product detail handler
func NewProductDetailHandler(inventory *service.InventoryService, authz *security.AuthorizationService, logger *slog.Logger) *ProductDetailHandler {
	return &ProductDetailHandler{
		inventory: inventory,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles GET, PUT and DELETE /api/products/{id}
func (h *ProductDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		if requirePermission(w, r, h.authz, security.PermViewProducts) == nil {
			return
		}
		product, err := h.inventory.Get(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)

	case http.MethodPut:
		if requirePermission(w, r, h.authz, security.PermManageProducts) == nil {
			return
		}
		var patch domain.ProductPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		product, err := h.inventory.Update(id, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)

	case http.MethodDelete:
		if requirePermission(w, r, h.authz, security.PermManageProducts) == nil {
			return
		}
		if err := h.inventory.Delete(id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// LowStockHandler lists products at or below their minimum stock
type LowStockHandler struct {
	inventory *service.InventoryService
	authz     *security.AuthorizationService
}

// NewLowStockHandler creates a new low stock handler
func NewLowStockHandler(inventory *service.InventoryService, authz *security.AuthorizationService) *LowStockHandler {
	return &LowStockHandler{inventory: inventory, authz: authz}
}

// ServeHTTP handles GET /api/products/low-stock
func (h *LowStockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermViewProducts) == nil {
		return
	}

	products, err := h.inventory.LowStock()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// CategoriesHandler lists the fixed retail categories
type CategoriesHandler struct{}

// NewCategoriesHandler creates a new categories handler
func NewCategoriesHandler() *CategoriesHandler {
	return &CategoriesHandler{}
}

// ServeHTTP handles GET /api/categories
func (h *CategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Categories)
}

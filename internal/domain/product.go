package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSaleNotFound    = errors.New("sale not found")
	ErrStaffNotFound   = errors.New("staff member not found")
)

// ValidationError reports malformed input to a mutation before anything
// is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Category is one of the fixed retail categories carried by the store.
type Category string

const (
	CategoryWhisky     Category = "Whisky"
	CategoryVodka      Category = "Vodka"
	CategoryBeer       Category = "Beer"
	CategoryWine       Category = "Wine"
	CategorySoftDrinks Category = "Soft Drinks"
	CategoryGin        Category = "Gin"
	CategoryRum        Category = "Rum"
	CategoryBrandy     Category = "Brandy"
	CategoryLiqueur    Category = "Liqueur"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryWhisky,
	CategoryVodka,
	CategoryBeer,
	CategoryWine,
	CategorySoftDrinks,
	CategoryGin,
	CategoryRum,
	CategoryBrandy,
	CategoryLiqueur,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a single stocked item. Stock never goes negative; UpdatedAt
// advances on every mutation.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  Category        `json:"category"`
	Size      string          `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"minStock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LowOnStock reports whether the product has fallen to or below its
// configured minimum.
func (p *Product) LowOnStock() bool {
	return p.Stock <= p.MinStock
}

// ProductPatch carries the fields of an update; nil fields are left alone.
type ProductPatch struct {
	Name     *string          `json:"name,omitempty"`
	Brand    *string          `json:"brand,omitempty"`
	Category *Category        `json:"category,omitempty"`
	Size     *string          `json:"size,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
	MinStock *int             `json:"minStock,omitempty"`
}

// ProductRepository defines data access for products
type ProductRepository interface {
	Create(product *Product) error
	GetByID(id string) (*Product, error)
	Update(product *Product) error
	Delete(id string) error
	List() ([]*Product, error)
}

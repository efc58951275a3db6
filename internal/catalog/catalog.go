package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is an immutable catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

// Catalog is the ordered, read-only product list served to every session.
type Catalog struct {
	products []Product
	index    map[string]int
}

// New validates products and preserves their order.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %q: name is required", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q: price must not be negative", p.ID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// List returns a copy of the products in display order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get looks a product up by id.
func (c *Catalog) Get(id string) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Len() int {
	return len(c.products)
}

package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type fileProduct struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
}

// Default returns the built-in storefront catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Prices are parsed as exact decimals.
func Parse(data []byte) (*Catalog, error) {
	var raw fileCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(raw.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	products := make([]Product, 0, len(raw.Products))
	for _, p := range raw.Products {
		price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q: %w", p.ID, p.Price, err)
		}
		products = append(products, Product{
			ID:          p.ID,
			Name:        strings.TrimSpace(p.Name),
			Price:       price,
			Image:       strings.TrimSpace(p.Image),
			Description: strings.TrimSpace(p.Description),
		})
	}
	return New(products)
}

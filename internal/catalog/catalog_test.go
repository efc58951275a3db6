package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())

	list := c.List()
	ids := []string{list[0].ID, list[1].ID, list[2].ID, list[3].ID}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)

	fried, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "كبة مقلية", fried.Name)
	assert.True(t, fried.Price.Equal(decimal.RequireFromString("1.5")))
	assert.NotEmpty(t, fried.Image)

	grilled, ok := c.Get("2")
	require.True(t, ok)
	assert.Equal(t, "2", grilled.Price.String())

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestListReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	list := c.List()
	list[0].Name = "changed"

	p, _ := c.Get("1")
	assert.Equal(t, "كبة مقلية", p.Name)
}

func TestNewRejectsInvalidProducts(t *testing.T) {
	cases := map[string][]Product{
		"blank id":       {{ID: " ", Name: "a"}},
		"duplicate id":   {{ID: "1", Name: "a"}, {ID: "1", Name: "b"}},
		"blank name":     {{ID: "1", Name: ""}},
		"negative price": {{ID: "1", Name: "a", Price: decimal.NewFromInt(-1)}},
	}
	for name, products := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(products)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte("products:\n  - id: tea\n    name: Tea\n    price: 0.75\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	p, ok := c.Get("tea")
	require.True(t, ok)
	assert.Equal(t, "0.75", p.Price.String())
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("products: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("products:\n  - id: x\n    name: X\n    price: abc\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

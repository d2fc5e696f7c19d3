package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogEntry is one currency, payment method or country.
type CatalogEntry struct {
	Code string `yaml:"code,omitempty" json:"code,omitempty"`
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	Name string `yaml:"name" json:"name"`
}

// Key returns the entry identifier (id for payment methods, code otherwise).
func (e CatalogEntry) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Code
}

// Catalog is the reference data the P2P UI offers in its pickers.
type Catalog struct {
	CryptoCurrencies []CatalogEntry `yaml:"cryptoCurrencies" json:"cryptoCurrencies"`
	FiatCurrencies   []CatalogEntry `yaml:"fiatCurrencies" json:"fiatCurrencies"`
	PaymentMethods   []CatalogEntry `yaml:"paymentMethods" json:"paymentMethods"`
	Countries        []CatalogEntry `yaml:"countries" json:"countries"`
}

var readCatalogFile = os.ReadFile

// LoadCatalog parses the file at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := readCatalogFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.PaymentMethods) == 0 {
		return nil, fmt.Errorf("parse catalog: no payment methods")
	}
	return &c, nil
}

// HasPaymentMethod matches by id or display name, case-insensitively.
func (c *Catalog) HasPaymentMethod(method string) bool {
	return hasEntry(c.PaymentMethods, method)
}

// HasCrypto reports whether code is a listed crypto currency.
func (c *Catalog) HasCrypto(code string) bool {
	return hasEntry(c.CryptoCurrencies, code)
}

// HasFiat reports whether code is a listed fiat currency.
func (c *Catalog) HasFiat(code string) bool {
	return hasEntry(c.FiatCurrencies, code)
}

func hasEntry(entries []CatalogEntry, v string) bool {
	v = strings.TrimSpace(v)
	for _, e := range entries {
		if strings.EqualFold(e.Key(), v) || strings.EqualFold(e.Name, v) {
			return true
		}
	}
	return false
}

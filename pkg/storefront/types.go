// Package storefront models the public JSON catalog of a storefront and
// fetches it through the storefront client.
package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Meta is the aggregate published counts reported by /meta.json.
type Meta struct {
	PublishedProductsCount    int `json:"published_products_count"`
	PublishedCollectionsCount int `json:"published_collections_count"`
}

// Product is one catalog entry with its variants.
type Product struct {
	Handle      string    `json:"handle"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        Tags      `json:"tags"`
	Images      []Image   `json:"images"`
	Options     []Option  `json:"options"`
	Variants    []Variant `json:"variants"`
}

// FirstImage returns the product's first image, or the zero Image.
func (p *Product) FirstImage() Image {
	if len(p.Images) == 0 {
		return Image{}
	}
	return p.Images[0]
}

// Image is a product or variant image.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Option names one product option axis (e.g. "Size").
type Option struct {
	Name string `json:"name"`
}

// Collection is a named group of products.
type Collection struct {
	Handle        string `json:"handle"`
	Title         string `json:"title"`
	ProductsCount int    `json:"products_count"`
}

// Label is the text shown for the collection in the selection prompt.
func (c Collection) Label() string {
	return fmt.Sprintf("%s (%d products)", c.Title, c.ProductsCount)
}

// Tags decodes either a JSON array of strings or one comma separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = splitTags(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

func splitTags(s string) Tags {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make(Tags, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Variant is one purchasable configuration of a product.
type Variant struct {
	SKU               string
	Grams             *int64
	InventoryQuantity *int64
	FeaturedImage     *Image
	Price             string
	CompareAtPrice    string
	RequiresShipping  bool
	Taxable           bool
	Barcode           string

	// Options maps the 1-based option index to the variant's value for it.
	Options map[int]string
}

// Option returns the value for the 1-based option index n, or "".
func (v *Variant) Option(n int) string {
	return v.Options[n]
}

// variantJSON mirrors the wire shape; nullable strings decode through pointers.
type variantJSON struct {
	SKU               *string         `json:"sku"`
	Grams             *int64          `json:"grams"`
	InventoryQuantity *int64          `json:"inventory_quantity"`
	FeaturedImage     *Image          `json:"featured_image"`
	Price             json.RawMessage `json:"price"`
	CompareAtPrice    json.RawMessage `json:"compare_at_price"`
	RequiresShipping  bool            `json:"requires_shipping"`
	Taxable           bool            `json:"taxable"`
	Barcode           *string         `json:"barcode"`
}

// UnmarshalJSON implements json.Unmarshaler. option1..optionN keys are
// collected into Options; null, empty and non-scalar option values are left out.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var raw variantJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	price, err := scalarString(raw.Price)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	compareAt, err := scalarString(raw.CompareAtPrice)
	if err != nil {
		return fmt.Errorf("compare_at_price: %w", err)
	}

	*v = Variant{
		SKU:               deref(raw.SKU),
		Grams:             raw.Grams,
		InventoryQuantity: raw.InventoryQuantity,
		FeaturedImage:     raw.FeaturedImage,
		Price:             price,
		CompareAtPrice:    compareAt,
		RequiresShipping:  raw.RequiresShipping,
		Taxable:           raw.Taxable,
		Barcode:           deref(raw.Barcode),
	}

	for key, value := range fields {
		n, ok := optionIndex(key)
		if !ok {
			continue
		}
		s, err := scalarString(value)
		if err != nil || s == "" {
			continue
		}
		if v.Options == nil {
			v.Options = make(map[int]string)
		}
		v.Options[n] = s
	}

	return nil
}

// optionIndex parses "optionN" keys with N >= 1.
func optionIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "option")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// scalarString renders a JSON string, number or boolean as text; null or
// absent is "". Objects and arrays are an error.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	if bytes.Equal(raw, []byte("true")) || bytes.Equal(raw, []byte("false")) {
		return string(raw), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

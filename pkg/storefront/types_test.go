package storefront

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestVariant_UnmarshalJSON(t *testing.T) {
	data := []byte(`{
		"id": 1,
		"sku": "TSHIRT-RED-M",
		"grams": 200,
		"inventory_quantity": 7,
		"featured_image": {"src": "https://cdn.test/red.jpg", "alt": "red"},
		"price": "19.99",
		"compare_at_price": null,
		"requires_shipping": true,
		"taxable": false,
		"barcode": null,
		"option1": "Red",
		"option2": "M",
		"option3": null
	}`)

	var v Variant
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if v.SKU != "TSHIRT-RED-M" || v.Price != "19.99" {
		t.Errorf("unexpected scalar fields %+v", v)
	}
	if v.CompareAtPrice != "" || v.Barcode != "" {
		t.Errorf("null strings should decode as empty, got %q %q", v.CompareAtPrice, v.Barcode)
	}
	if v.Grams == nil || *v.Grams != 200 {
		t.Errorf("Grams = %v", v.Grams)
	}
	if v.InventoryQuantity == nil || *v.InventoryQuantity != 7 {
		t.Errorf("InventoryQuantity = %v", v.InventoryQuantity)
	}
	if v.FeaturedImage == nil || v.FeaturedImage.Src != "https://cdn.test/red.jpg" {
		t.Errorf("FeaturedImage = %+v", v.FeaturedImage)
	}
	if !v.RequiresShipping || v.Taxable {
		t.Errorf("RequiresShipping/Taxable = %v/%v", v.RequiresShipping, v.Taxable)
	}

	want := map[int]string{1: "Red", 2: "M"}
	if !reflect.DeepEqual(v.Options, want) {
		t.Errorf("Options = %v, want %v", v.Options, want)
	}
	if v.Option(3) != "" {
		t.Errorf("Option(3) = %q, want empty", v.Option(3))
	}
}

func TestVariant_UnmarshalJSON_NumericPrice(t *testing.T) {
	var v Variant
	if err := json.Unmarshal([]byte(`{"price": 12.5, "compare_at_price": 20}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Price != "12.5" || v.CompareAtPrice != "20" {
		t.Errorf("Price/CompareAtPrice = %q/%q", v.Price, v.CompareAtPrice)
	}
	if v.Grams != nil || v.InventoryQuantity != nil || v.FeaturedImage != nil {
		t.Error("absent optional fields should stay nil")
	}
}

func TestVariant_UnmarshalJSON_Invalid(t *testing.T) {
	var v Variant
	if err := json.Unmarshal([]byte(`{"price": {"amount": "1.00"}}`), &v); err == nil {
		t.Error("object price should fail to decode")
	}
}

func TestVariant_UnmarshalJSON_NonStringOptions(t *testing.T) {
	var v Variant
	data := `{"price": "5.00", "option1": true, "option2": 42, "option3": ["x"], "option4": {"a": 1}}`
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	tests := []struct {
		n    int
		want string
	}{
		{1, "true"},
		{2, "42"},
		{3, ""},
		{4, ""},
	}
	for _, tt := range tests {
		if got := v.Option(tt.n); got != tt.want {
			t.Errorf("Option(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestProductsPage_OddOptionKeepsPage(t *testing.T) {
	var payload struct {
		Products []Product `json:"products"`
	}
	data := `{"products": [
		{"handle": "a", "variants": [{"price": "1.00", "option1": false}]},
		{"handle": "b", "variants": [{"price": "2.00", "option1": "Blue"}]}
	]}`
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(payload.Products) != 2 {
		t.Fatalf("decoded %d products, want 2", len(payload.Products))
	}
	if got := payload.Products[0].Variants[0].Option(1); got != "false" {
		t.Errorf("Option(1) = %q, want false", got)
	}
	if got := payload.Products[1].Variants[0].Option(1); got != "Blue" {
		t.Errorf("Option(1) = %q, want Blue", got)
	}
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"option1", 1, true},
		{"option12", 12, true},
		{"option0", 0, false},
		{"option", 0, false},
		{"options", 0, false},
		{"price", 0, false},
	}

	for _, tt := range tests {
		n, ok := optionIndex(tt.key)
		if n != tt.want || ok != tt.ok {
			t.Errorf("optionIndex(%q) = %d, %v; want %d, %v", tt.key, n, ok, tt.want, tt.ok)
		}
	}
}

func TestTags_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Tags
	}{
		{"array", `["summer", "cotton"]`, Tags{"summer", "cotton"}},
		{"comma string", `"summer, cotton ,sale"`, Tags{"summer", "cotton", "sale"}},
		{"empty string", `""`, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Tags
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestProduct_FirstImage(t *testing.T) {
	p := Product{}
	if img := p.FirstImage(); img != (Image{}) {
		t.Errorf("FirstImage() of product without images = %+v", img)
	}

	p.Images = []Image{{Src: "a.jpg", Alt: "A"}, {Src: "b.jpg"}}
	if img := p.FirstImage(); img.Src != "a.jpg" || img.Alt != "A" {
		t.Errorf("FirstImage() = %+v", img)
	}
}

func TestCollection_Label(t *testing.T) {
	c := Collection{Handle: "summer", Title: "Summer Sale", ProductsCount: 42}
	if got, want := c.Label(), "Summer Sale (42 products)"; got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}
}

package csvexport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/storefront-export/pkg/storefront"
)

// Fixed columns, in header order. Option columns follow them.
const (
	ColHandle                  = "Handle"
	ColTitle                   = "Title"
	ColBody                    = "Body (HTML)"
	ColVendor                  = "Vendor"
	ColType                    = "Type"
	ColTags                    = "Tags"
	ColPublished               = "Published"
	ColVariantSKU              = "Variant SKU"
	ColVariantGrams            = "Variant Grams"
	ColVariantInventoryQty     = "Variant Inventory Qty"
	ColVariantImage            = "Variant Image"
	ColVariantPrice            = "Variant Price"
	ColVariantCompareAtPrice   = "Variant Compare At Price"
	ColVariantRequiresShipping = "Variant Requires Shipping"
	ColVariantTaxable          = "Variant Taxable"
	ColVariantBarcode          = "Variant Barcode"
	ColImageSrc                = "Image Src"
	ColImagePosition           = "Image Position"
	ColImageAltText            = "Image Alt Text"
	ColStatus                  = "Status"
)

// OptionNameColumn returns the header of the n-th (1-based) option name column.
func OptionNameColumn(n int) string {
	return fmt.Sprintf("Option%d Name", n)
}

// OptionValueColumn returns the header of the n-th (1-based) option value column.
func OptionValueColumn(n int) string {
	return fmt.Sprintf("Option%d Value", n)
}

// MapProduct flattens product into one row per variant. The first row carries
// the product-level fields; later rows leave them empty and repeat only the
// handle. A product without variants yields no rows.
func MapProduct(product storefront.Product) []*Row {
	rows := make([]*Row, 0, len(product.Variants))
	image := product.FirstImage()

	for i, variant := range product.Variants {
		first := i == 0
		row := NewRow()

		row.Set(ColHandle, product.Handle)
		row.Set(ColTitle, firstOnly(first, product.Title))
		row.Set(ColBody, firstOnly(first, product.BodyHTML))
		row.Set(ColVendor, firstOnly(first, product.Vendor))
		row.Set(ColType, firstOnly(first, product.ProductType))
		row.Set(ColTags, firstOnly(first, strings.Join(product.Tags, ", ")))
		row.Set(ColPublished, firstOnly(first, "TRUE"))
		row.Set(ColVariantSKU, variant.SKU)
		row.Set(ColVariantGrams, formatInt(variant.Grams))
		row.Set(ColVariantInventoryQty, formatInt(variant.InventoryQuantity))
		row.Set(ColVariantImage, featuredImageSrc(variant))
		row.Set(ColVariantPrice, variant.Price)
		row.Set(ColVariantCompareAtPrice, variant.CompareAtPrice)
		row.Set(ColVariantRequiresShipping, formatBool(variant.RequiresShipping))
		row.Set(ColVariantTaxable, formatBool(variant.Taxable))
		row.Set(ColVariantBarcode, variant.Barcode)
		row.Set(ColImageSrc, firstOnly(first, image.Src))
		row.Set(ColImagePosition, firstOnly(first, "1"))
		row.Set(ColImageAltText, firstOnly(first, image.Alt))
		row.Set(ColStatus, firstOnly(first, "active"))

		for j, option := range product.Options {
			row.Set(OptionNameColumn(j+1), option.Name)
			row.Set(OptionValueColumn(j+1), variant.Option(j+1))
		}

		rows = append(rows, row)
	}

	return rows
}

func firstOnly(first bool, value string) string {
	if first {
		return value
	}
	return ""
}

func featuredImageSrc(v storefront.Variant) string {
	if v.FeaturedImage == nil {
		return ""
	}
	return v.FeaturedImage.Src
}

func formatInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

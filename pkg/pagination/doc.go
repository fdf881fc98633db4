// Package pagination walks page-numbered storefront listings one page at a
// time.
//
// The number of pages is computed up front from the total reported by
// /meta.json, capped by an optional page limit. Pages are fetched strictly in
// order with a fixed delay between consecutive fetches (never before the first
// or after the last). A failed page is logged and skipped; the walk continues
// and returns whatever was fetched.
//
// Example usage:
//
//	walker := pagination.NewWalker(pagination.Config{Delay: 2 * time.Second}, logger)
//	pages := pagination.TotalPages(meta.PublishedProductsCount, 25, 2)
//	result, err := pagination.Walk(ctx, walker, "products", pages,
//		func(ctx context.Context, page int) ([]storefront.Product, error) {
//			return api.ProductsPage(ctx, 25, page)
//		})
package pagination

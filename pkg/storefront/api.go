package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// CollectionsPageSize is the fixed page size of /collections.json.
const CollectionsPageSize = 250

// ErrDecode wraps malformed storefront payloads.
var ErrDecode = errors.New("decode storefront response")

// Getter performs a GET against the storefront and returns the body.
// *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// API fetches the storefront's public catalog endpoints.
type API struct {
	client Getter
}

// NewAPI returns an API backed by client.
func NewAPI(client Getter) *API {
	return &API{client: client}
}

// Meta fetches /meta.json.
func (a *API) Meta(ctx context.Context) (*Meta, error) {
	var meta Meta
	if err := a.getJSON(ctx, "/meta.json", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ProductsPage fetches one page of /products.json.
func (a *API) ProductsPage(ctx context.Context, limit, page int) ([]Product, error) {
	var payload struct {
		Products []Product `json:"products"`
	}
	query := url.Values{
		"limit": {strconv.Itoa(limit)},
		"page":  {strconv.Itoa(page)},
	}
	if err := a.getJSON(ctx, "/products.json", query, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// CollectionsPage fetches one page of /collections.json at CollectionsPageSize.
func (a *API) CollectionsPage(ctx context.Context, page int) ([]Collection, error) {
	var payload struct {
		Collections []Collection `json:"collections"`
	}
	query := url.Values{
		"limit": {strconv.Itoa(CollectionsPageSize)},
		"page":  {strconv.Itoa(page)},
	}
	if err := a.getJSON(ctx, "/collections.json", query, &payload); err != nil {
		return nil, err
	}
	return payload.Collections, nil
}

// CollectionProducts fetches the first limit products of a collection.
// Larger collections are truncated; there is no further pagination.
func (a *API) CollectionProducts(ctx context.Context, handle string, limit int) ([]Product, error) {
	var payload struct {
		Products []Product `json:"products"`
	}
	path := "/collections/" + url.PathEscape(handle) + "/products.json"
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := a.getJSON(ctx, path, query, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

func (a *API) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := a.client.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrDecode, path, err)
	}
	return nil
}

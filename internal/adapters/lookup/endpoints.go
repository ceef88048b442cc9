package lookup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/services/scan/domain"
)

type batchRequest struct {
	Identifiers []string `json:"identifiers"`
}

type batchResponse struct {
	Products []domain.ProductRecord `json:"products"`
}

// BatchResolve resolves identifiers in one request, absent ids are simply not returned
func (c *Client) BatchResolve(ctx context.Context, identifiers []string) ([]domain.ProductRecord, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(batchRequest{Identifiers: identifiers})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode batch request")
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/products:batchResolve", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	// absent ids are left out of a 200; a 404 here means the route itself is missing
	if resp.StatusCode == http.StatusNotFound {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{
			Status: resp.StatusCode,
			Body:   string(tail),
			Err:    perr.Newf(perr.ErrorCodeLookup, "lookup batch route answered %d", resp.StatusCode),
		}
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeLookup, "decode batch response")
	}
	return out.Products, nil
}

// Resolve looks up one identifier, a 404 yields nil without error
func (c *Client) Resolve(ctx context.Context, identifier string) (*domain.ProductRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/products/by-identifier/"+url.PathEscape(identifier), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var rec domain.ProductRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeLookup, "decode product")
	}
	if len(rec.Identifiers) == 0 {
		rec.Identifiers = []string{identifier}
	}
	return &rec, nil
}

var _ domain.Resolver = (*Client)(nil)

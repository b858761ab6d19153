package authpipe

import (
	"context"
	"encoding/json"
	"net/http"
)

// Do sends spec and decodes the payload into T.
func Do[T any](ctx context.Context, c *Client, spec CallSpec) (T, error) {
	var out T
	resp, err := c.Send(ctx, spec)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, malformedPayload(resp, err)
	}
	return out, nil
}

// DoPage sends spec and decodes a paginated payload. It returns ErrNotPaginated when
// the data object has no items field.
func DoPage[T any](ctx context.Context, c *Client, spec CallSpec) (Page[T], error) {
	var page Page[T]
	resp, err := c.Send(ctx, spec)
	if err != nil {
		return page, err
	}
	if resp.Page == nil {
		return page, ErrNotPaginated
	}
	if err := json.Unmarshal(resp.Page.Items, &page.Items); err != nil {
		return page, malformedPayload(resp, err)
	}
	page.Total = resp.Page.Total
	page.Current = resp.Page.Current
	page.PageSize = resp.Page.PageSize
	return page, nil
}

func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*Response, error) {
	return c.Send(ctx, CallSpec{Method: http.MethodGet, Path: path, Params: params})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, CallSpec{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, CallSpec{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, CallSpec{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string, params map[string]string) (*Response, error) {
	return c.Send(ctx, CallSpec{Method: http.MethodDelete, Path: path, Params: params})
}

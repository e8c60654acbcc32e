package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ListProviders returns a page of linked OAuth identities
func (c *Client) ListProviders(ctx context.Context, token string, q PageQuery) (*Page[Provider], error) {
	return listPage[Provider](ctx, c, token, "providers", q)
}

// CreateProvider links an OAuth identity to a student account
func (c *Client) CreateProvider(ctx context.Context, token string, p Provider) (*Provider, error) {
	p.ID = 0
	raw, err := c.do(ctx, token, "POST", "providers", nil, p)
	if err != nil {
		return nil, err
	}
	return decode[Provider](raw)
}

// UpdateProvider patches a linked identity by ID
func (c *Client) UpdateProvider(ctx context.Context, token string, id int64, p Provider) (*Provider, error) {
	p.ID = 0
	raw, err := c.do(ctx, token, "PATCH", fmt.Sprintf("providers/%d", id), nil, p)
	if err != nil {
		return nil, err
	}
	return decode[Provider](raw)
}

// DeleteProviders unlinks identities by ID
func (c *Client) DeleteProviders(ctx context.Context, token string, ids []int64) error {
	_, err := c.do(ctx, token, "DELETE", "providers", idsParam(ids), nil)
	return err
}

// idsParam encodes a batch delete selection as ids=1,2,3
func idsParam(ids []int64) url.Values {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return url.Values{"ids": {strings.Join(parts, ",")}}
}

func queryParam(key, value string) url.Values {
	return url.Values{key: {value}}
}

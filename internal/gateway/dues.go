package gateway

import (
	"context"
	"fmt"
	"io"
)

// ListDues returns a page of dues records
func (c *Client) ListDues(ctx context.Context, token string, q PageQuery) (*Page[Dues], error) {
	return listPage[Dues](ctx, c, token, "dues", q)
}

// CreateDues records a single dues payment
func (c *Client) CreateDues(ctx context.Context, token string, d Dues) (*Dues, error) {
	d.DuesID = 0
	raw, err := c.do(ctx, token, "POST", "dues", nil, d)
	if err != nil {
		return nil, err
	}
	return decode[Dues](raw)
}

// UpdateDues patches a dues record by ID
func (c *Client) UpdateDues(ctx context.Context, token string, id int64, d Dues) (*Dues, error) {
	d.DuesID = 0
	raw, err := c.do(ctx, token, "PATCH", fmt.Sprintf("dues/%d", id), nil, d)
	if err != nil {
		return nil, err
	}
	return decode[Dues](raw)
}

// DeleteDues removes dues records by ID
func (c *Client) DeleteDues(ctx context.Context, token string, ids []int64) error {
	_, err := c.do(ctx, token, "DELETE", "dues", idsParam(ids), nil)
	return err
}

// UploadDuesCSV bulk imports dues records from a CSV file. The file is
// passed through unparsed; the upstream owns the format.
func (c *Client) UploadDuesCSV(ctx context.Context, token, filename string, file io.Reader) error {
	_, err := c.doMultipart(ctx, token, "POST", "dues", filename, file)
	return err
}

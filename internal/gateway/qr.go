package gateway

import (
	"context"
	"fmt"
)

// StudentByQR resolves a scanned student number to a name and dues status.
// The token is the scanning user's bearer token; kiosk service scans pass
// an empty token and rely on the upstream's network-level trust.
func (c *Client) StudentByQR(ctx context.Context, token, studentNumber string) (*QRStudent, error) {
	raw, err := c.do(ctx, token, "GET", "qr/student", queryParam("studentNumber", studentNumber), nil)
	if err != nil {
		return nil, err
	}
	return decode[QRStudent](raw)
}

// SaveQRLog records a kiosk scan event
func (c *Client) SaveQRLog(ctx context.Context, token string, entry QRLogEntry) error {
	_, err := c.do(ctx, token, "POST", "qr-auth", nil, entry)
	return err
}

// ListQRLogs returns a page of recorded scan events
func (c *Client) ListQRLogs(ctx context.Context, token string, q PageQuery) (*Page[QrAuthLog], error) {
	return listPage[QrAuthLog](ctx, c, token, "qr-auth-logs", q)
}

// DeleteQRLog removes a single scan event by ID
func (c *Client) DeleteQRLog(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, token, "DELETE", fmt.Sprintf("qr-auth-logs/%d", id), nil, nil)
	return err
}

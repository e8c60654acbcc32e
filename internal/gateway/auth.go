package gateway

import "context"

// ExchangeToken trades an OAuth authorization code for a bearer token.
// The redirect URL must match the one registered with the identity service.
func (c *Client) ExchangeToken(ctx context.Context, code, redirectURL string) (*TokenResponse, error) {
	raw, err := c.do(ctx, "", "POST", "token", nil, map[string]string{
		"code":        code,
		"redirectUrl": redirectURL,
	})
	if err != nil {
		return nil, err
	}
	return decode[TokenResponse](raw)
}

// TokenInfo resolves a bearer token to its user profile. Returns nil
// without error when the upstream sends an empty payload.
func (c *Client) TokenInfo(ctx context.Context, token string) (*UserProfile, error) {
	raw, err := c.do(ctx, token, "GET", "token-info", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[UserProfile](raw)
}

// CheckStudentNumber looks up a student number in the department roster
func (c *Client) CheckStudentNumber(ctx context.Context, studentNumber string) (*StudentInfo, error) {
	raw, err := c.do(ctx, "", "GET", "additional-info/check", queryParam("studentNumber", studentNumber), nil)
	if err != nil {
		return nil, err
	}
	return decode[StudentInfo](raw)
}

// ConnectStudentNumber links a verified student number to a pending OAuth
// account, completing first-time registration
func (c *Client) ConnectStudentNumber(ctx context.Context, token, studentNumber, redirectURL string) error {
	_, err := c.do(ctx, "", "POST", "additional-info/connect", nil, map[string]string{
		"token":         token,
		"studentNumber": studentNumber,
		"redirectUrl":   redirectURL,
	})
	return err
}

// MyDues returns the dues record of the authenticated user
func (c *Client) MyDues(ctx context.Context, token string) (*Dues, error) {
	raw, err := c.do(ctx, token, "GET", "dues/me", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[Dues](raw)
}

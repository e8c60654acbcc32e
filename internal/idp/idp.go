// Package idp builds the redirect to the department's identity provider.
// The provider sends the browser back to the registered admin callback URL
// with an authorization code; the server package owns that callback.
package idp

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/crypto"
)

// stateTTL bounds how long a login redirect stays usable
const stateTTL = 10 * time.Minute

// loginState travels through the provider inside the OAuth state parameter,
// signed so the callback can trust the redirect target it carries.
type loginState struct {
	RedirectURL string `json:"redirectUrl"`
}

// Provider knows how to start a login against the identity service
type Provider struct {
	config oauth2.Config
	signer crypto.TokenSigner
}

func New(cfg config.AuthConfig) *Provider {
	return &Provider{
		config: oauth2.Config{
			ClientID:    string(cfg.ClientID),
			RedirectURL: cfg.AdminCallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		signer: crypto.NewTokenSigner([]byte(cfg.EncryptionKey), stateTTL),
	}
}

// AuthorizeURL returns the provider URL to send the browser to. The
// eventual redirect target is signed into the state parameter.
func (p *Provider) AuthorizeURL(redirectURL string) (string, error) {
	state, err := p.signer.Sign(loginState{RedirectURL: redirectURL})
	if err != nil {
		return "", fmt.Errorf("signing login state: %w", err)
	}
	return p.config.AuthCodeURL(state), nil
}

// VerifyState validates a returned state parameter and extracts the
// redirect target. Expired or tampered states fail.
func (p *Provider) VerifyState(state string) (string, error) {
	var s loginState
	if err := p.signer.Verify(state, &s); err != nil {
		return "", fmt.Errorf("verifying login state: %w", err)
	}
	return s.RedirectURL, nil
}

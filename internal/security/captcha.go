package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/atelierlumen/leadgate/pkg/logging"
)

// ErrCaptchaFailed is returned when the challenge-response token does not
// verify.
var ErrCaptchaFailed = errors.New("captcha verification failed")

// DevBypassToken is the sentinel accepted instead of a real token when the
// verifier runs in development mode.
const DevBypassToken = "dev-bypass"

// CaptchaVerifier validates a client-presented challenge-response token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// TurnstileVerifier checks tokens against a Turnstile-compatible siteverify
// endpoint with a shared secret.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	devMode   bool
	client    *http.Client
	logger    *logging.Logger
}

// NewTurnstileVerifier creates a verifier. In devMode the sentinel token is
// accepted without calling the remote service.
func NewTurnstileVerifier(secret, verifyURL string, devMode bool, logger *logging.Logger) *TurnstileVerifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		devMode:   devMode,
		client:    http.DefaultClient,
		logger:    logger,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify performs the server-to-server token check. Timeout behavior is the
// HTTP client's default; a failed verification is terminal for the request.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrCaptchaFailed
	}
	if v.devMode && token == DevBypassToken {
		v.logger.Debug("captcha bypassed via dev sentinel token")
		return nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("security: build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("security: siteverify call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("security: decode siteverify response: %w", err)
	}
	if !body.Success {
		v.logger.Info("captcha verification rejected", "error_codes", body.ErrorCodes)
		return ErrCaptchaFailed
	}
	return nil
}

// StaticVerifier accepts or rejects every token; used in tests.
type StaticVerifier struct {
	Err error
}

// Verify returns the configured error.
func (s StaticVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrCaptchaFailed
	}
	return s.Err
}

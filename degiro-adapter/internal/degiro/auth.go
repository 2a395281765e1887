package degiro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trading-adapters/pkg/utils"
)

const (
	loginResultSuccess  = "success"
	loginResultRejected = "rejected"
	loginResultError    = "error"
)

// Login exchanges the credentials and a fresh one-time password for a session,
// then binds the session to its account. Concurrent calls run one at a time.
//
// A broker rejection resets the session to Unauthenticated. Network failures
// leave the previous session untouched. If binding fails the session stays in
// StageAwaitingAccountBinding and the caller must log in again.
func (c *Client) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	attempt := uuid.NewString()
	log := c.logger.With(zap.String("attempt_id", attempt))

	sessionID, err := c.authenticate(ctx, log)
	if err != nil {
		c.reportLogin(err)
		return err
	}
	c.state.begin(sessionID)

	if err := c.bindAccount(ctx, log); err != nil {
		log.Warn("degiro.account_binding_failed",
			zap.String("session", utils.MaskToken(sessionID)),
			zap.Error(err))
		c.reportLogin(err)
		return fmt.Errorf("degiro: bind account: %w", err)
	}

	sess := c.state.snapshot()
	log.Info("degiro.login_success",
		zap.String("session", utils.MaskToken(sessionID)),
		zap.Int64("int_account", sess.IntAccount.Unwrap()))
	c.reportLogin(nil)
	return nil
}

// authenticate performs the TOTP login and returns the new session id.
func (c *Client) authenticate(ctx context.Context, log *zap.Logger) (string, error) {
	code, err := c.otp.Generate(c.now())
	if err != nil {
		log.Error("degiro.totp_failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTOTP, err)
	}

	body := loginRequest{
		Username:        c.creds.Username,
		Password:        c.creds.Password,
		QueryParams:     map[string]any{},
		OneTimePassword: code,
		SaveDevice:      false,
	}
	req, err := c.build(ctx, Session{}, call{endpoint: endpointLogin, body: body})
	if err != nil {
		return "", err
	}

	var rejected *AuthenticationError
	raw, err := c.exec.DoWith(ctx, req, endpointLogin.name, func(status int, respBody []byte) error {
		rejected = loginRejection(status, respBody)
		return rejected
	})
	if err != nil {
		if rejected != nil {
			c.state.reset()
			log.Warn("degiro.login_rejected",
				zap.String("username", c.creds.Username),
				zap.Int("http_status", rejected.HTTPStatus),
				zap.Int("status", rejected.Status),
				zap.String("status_text", rejected.StatusText))
			return "", rejected
		}
		log.Warn("degiro.login_network_error", zap.Error(err))
		return "", mapTransportError(err)
	}

	var resp LoginResponse
	if err := decode(raw, &resp); err != nil {
		c.state.reset()
		log.Warn("degiro.login_malformed", zap.Error(err))
		return "", &AuthenticationError{HTTPStatus: http.StatusOK, Body: truncateBody(raw, 512), Cause: err}
	}
	if resp.Status != 0 || resp.SessionID == "" {
		c.state.reset()
		log.Warn("degiro.login_rejected",
			zap.String("username", c.creds.Username),
			zap.Int("status", resp.Status),
			zap.String("status_text", resp.StatusText),
			zap.Bool("captcha_required", resp.CaptchaRequired))
		return "", &AuthenticationError{
			HTTPStatus: http.StatusOK,
			Status:     resp.Status,
			StatusText: resp.StatusText,
			Body:       truncateBody(raw, 512),
		}
	}
	return resp.SessionID, nil
}

// loginRejection turns a non-2xx login response into an AuthenticationError,
// keeping the broker's status fields when the body carries them.
func loginRejection(status int, body []byte) *AuthenticationError {
	authErr := &AuthenticationError{HTTPStatus: status, Body: truncateBody(body, 512)}
	var resp LoginResponse
	if json.Unmarshal(body, &resp) == nil {
		authErr.Status = resp.Status
		authErr.StatusText = resp.StatusText
	}
	return authErr
}

// bindAccount fetches the account id for the session started by authenticate.
func (c *Client) bindAccount(ctx context.Context, log *zap.Logger) error {
	var resp clientResponse
	if err := c.do(ctx, call{endpoint: endpointClient}, &resp); err != nil {
		return err
	}
	if err := c.state.bind(resp.Data.IntAccount); err != nil {
		return err
	}
	log.Debug("degiro.account_bound", zap.Int64("int_account", resp.Data.IntAccount))
	return nil
}

func (c *Client) reportLogin(err error) {
	if c.onLogin == nil {
		return
	}
	switch {
	case err == nil:
		c.onLogin(loginResultSuccess)
	case errors.Is(err, ErrAuthenticationFailed):
		c.onLogin(loginResultRejected)
	default:
		c.onLogin(loginResultError)
	}
}

// Logout forgets the session locally. The broker session is left to expire.
func (c *Client) Logout() {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()
	c.state.reset()
	c.logger.Info("degiro.logout")
}

// State reports the current lifecycle stage.
func (c *Client) State() Stage {
	return c.state.snapshot().Stage()
}

// Session returns a snapshot of the session identifiers.
func (c *Client) Session() Session {
	return c.state.snapshot()
}

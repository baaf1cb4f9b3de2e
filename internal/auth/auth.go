// Package auth resolves connection tokens into participant identities.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is an authenticated participant.
type Identity struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

// Validator turns a token into an identity.
type Validator interface {
	// Validate returns ErrInvalidToken when the token is rejected and
	// ErrUnavailable when the decision could not be made.
	Validate(ctx context.Context, token string) (Identity, error)
}

var guestName = regexp.MustCompile(`^[A-Za-z0-9 _.-]{1,32}$`)

// NameValidator accepts a display name as the token and derives a guest
// participant id from it. Used when no secret or auth service is configured.
type NameValidator struct{}

func (NameValidator) Validate(_ context.Context, token string) (Identity, error) {
	name := strings.TrimSpace(token)
	if !guestName.MatchString(name) {
		return Identity{}, ErrInvalidToken
	}
	id := "guest-" + strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return Identity{ParticipantID: id, DisplayName: name}, nil
}

// Claims carried by participant tokens. The subject is the participant id.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// JWTValidator verifies HS256 tokens signed with a shared secret.
type JWTValidator struct {
	secret []byte
	issuer string
	clock  quartz.Clock
}

func NewJWTValidator(secret, issuer string, clock quartz.Clock) *JWTValidator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer, clock: clock}
}

func (v *JWTValidator) Validate(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return Identity{ParticipantID: claims.Subject, DisplayName: name}, nil
}

// Issue signs a token for id valid for ttl.
func (v *JWTValidator) Issue(id, name string, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// HTTPValidator validates tokens via HTTP callback to external service.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
}

func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client:      &http.Client{Timeout: 500 * time.Millisecond},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid         bool   `json:"valid"`
	ParticipantID string `json:"participant_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return Identity{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	default:
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var authResp validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&authResp); err != nil {
		return Identity{}, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !authResp.Valid || authResp.ParticipantID == "" {
		return Identity{}, ErrInvalidToken
	}
	name := authResp.DisplayName
	if name == "" {
		name = authResp.ParticipantID
	}
	return Identity{ParticipantID: authResp.ParticipantID, DisplayName: name}, nil
}

// Package auth provides JWT token issuance/validation, password hashing and
// the HTTP middleware that enforces bearer authentication.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers or logs in with email + password (or via GitHub OAuth)
// 2. Server verifies the credentials and issues a signed JWT access token
// 3. On subsequent API calls the client sends "Authorization: Bearer <token>"
// 4. Middleware validates the JWT and puts the user ID in the request context
// 5. Services resolve the user ID to a live account before doing anything
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server stores no session data.
// Everything needed (user ID, expiry) is inside the signed token, and the
// signature ensures nobody can tamper with it without the secret key.
// The trade-off is that tokens cannot be revoked before they expire; callers
// who need revocation must shorten the TTL or add an external denylist.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/taskboard/internal/apperror"
)

// issuer identifies tokens minted by this application. Validation rejects
// tokens carrying any other issuer, so a JWT from another app signed with a
// leaked shared secret still fails.
const issuer = "taskboard"

// TokenService issues and validates signed identity tokens.
//
// It holds the HMAC secret and the token lifetime. Both are process-wide
// configuration, loaded once at startup and immutable afterwards — there is
// deliberately no way to change them on a live service.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService.
//
// The secret must come from configuration (JWT_SECRET). There is no default:
// a service signing tokens with a well-known key is indistinguishable from a
// service with no authentication at all, so a missing or flimsy secret is a
// construction error, not a warning.
//
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. jwt.RegisteredClaims carries the standard
// fields: Subject holds the user ID, ExpiresAt the expiry.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a JWT access token for the given user.
//
// The subject claim is the user's ID rendered as a decimal string — JWT
// subjects are strings by spec, so the int64 is formatted on the way in and
// parsed back on the way out in Validate.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric — the same secret signs
// and verifies, which is the right shape for a single-process deployment.
func (s *TokenService) Issue(userID int64) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL creates a token with an explicit lifetime instead of the
// configured default. Tests use this to mint already-expired tokens.
func (s *TokenService) IssueWithTTL(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the user ID it
// encodes. Every failure — bad signature, wrong algorithm, malformed
// payload, elapsed expiry, missing subject — comes back as
// apperror.ErrInvalidToken. There are no partial-trust states.
//
// ALGORITHM CONFUSION:
// jwt.WithValidMethods pins the accepted algorithm to HS256. Without it an
// attacker could present a token whose header claims a different algorithm
// and try to get it verified under friendlier rules.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Callers only learn the category, never the specific parse failure —
		// the detail is kept in the wrapped error for logs.
		return 0, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("%w: unusable claims", apperror.ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", apperror.ErrInvalidToken)
	}

	return userID, nil
}

package utils // package utils provides helpers for sessions, secrets and identifiers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"
)

// SessionTTL is the fixed lifetime of a session token.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expiry, malformed payload.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the signed payload. UserID and Role are the {id, role}
// pair handed to route handlers; the registered claims carry expiry and a
// jti used by the optional revocation list.
type SessionClaims struct {
	UserID uint64 `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionToken is a signed token together with the metadata needed to
// revoke it later.
type SessionToken struct {
	Token string
	JTI   string
	Exp   time.Time
}

// SessionIssuer mints and verifies HS256 session tokens with a
// server-held secret.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer returns an issuer using SessionTTL and the wall clock.
func NewSessionIssuer(secret string) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
}

// WithClock returns a copy of the issuer reading time from now.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

// Issue signs a token for {id, role} valid for the issuer's TTL.
func (s *SessionIssuer) Issue(id uint64, role string) (SessionToken, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	jti := uuid.NewString()
	claims := SessionClaims{
		UserID: id,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// Verify checks signature and expiry and returns the payload unchanged.
// No freshness check against the credential store happens here.
func (s *SessionIssuer) Verify(raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.Role == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

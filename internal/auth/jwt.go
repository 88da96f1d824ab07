package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the session payload carried by the admin_session cookie.
type Claims struct {
	AdminID  int64  `json:"admin_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	Issuer string
	Key    []byte
	TTL    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer for the given issuer and secret.
func NewSigner(issuer, key string, ttl time.Duration) *Signer {
	return &Signer{Issuer: issuer, Key: []byte(key), TTL: ttl, now: time.Now}
}

// Issue signs a session token for an admin and returns it with its expiry.
func (s *Signer) Issue(adminID int64, username, fullName, role string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.TTL)
	claims := Claims{
		AdminID:  adminID,
		Username: username,
		FullName: fullName,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.Issuer,
			Subject:   strconv.FormatInt(adminID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign session")
	}
	return token, exp, nil
}

// Parse validates a token and returns claims.
func (s *Signer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.Key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.Issuer))
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if !ValidRole(claims.Role) {
		return Claims{}, errors.Wrapf(ErrInvalidToken, "unknown role %q", claims.Role)
	}
	return *claims, nil
}

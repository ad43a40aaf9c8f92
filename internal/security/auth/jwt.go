package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// Claims is the session token payload. Role separates the admin and employee identity spaces.
type Claims struct {
	OrganizationID string      `json:"org_id"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed session tokens
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "onboardhr"
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and verifying tokens
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// TTL returns the session lifetime
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// IssueSession signs a session token for the given principal
func (tm *TokenManager) IssueSession(p domain.Principal) (string, error) {
	if p.ID == "" || p.OrganizationID == "" {
		return "", fmt.Errorf("principal id and organization id required")
	}
	if p.Role != domain.RoleAdmin && p.Role != domain.RoleEmployee {
		return "", fmt.Errorf("unknown role %q", p.Role)
	}
	now := tm.now()
	claims := Claims{
		OrganizationID: p.OrganizationID,
		Email:          p.Email,
		Role:           p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifySession checks signature, issuer and expiry and returns the embedded principal.
// Expired tokens yield domain.ErrExpiredToken, anything else malformed yields domain.ErrInvalidToken.
func (tm *TokenManager) VerifySession(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ErrExpiredToken
		}
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || claims.OrganizationID == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleEmployee {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{
		ID:             claims.Subject,
		Email:          claims.Email,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
	}, nil
}

// ExtractToken pulls the bearer token out of an Authorization header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

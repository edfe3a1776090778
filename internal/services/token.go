package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/pkg/apperr"
)

// ActivationWindow is how long an activation link stays valid. A pending
// registration that is never activated simply expires with its token; no
// record is kept and no cleanup runs.
const ActivationWindow = 2 * time.Hour

// PendingRegistration carries a not-yet-created account between the
// registration request and the activation click. Password is still plaintext
// here; hashing happens at account creation.
type PendingRegistration struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Avatar   models.Avatar `json:"avatar"`
}

type activationClaims struct {
	PendingRegistration
	jwt.RegisteredClaims
}

// ActivationTokens issues and verifies the signed tokens that stand in for a
// persisted "unconfirmed account" table.
type ActivationTokens struct {
	secret []byte
	window time.Duration
}

func NewActivationTokens(secret string) *ActivationTokens {
	return &ActivationTokens{secret: []byte(secret), window: ActivationWindow}
}

func (a *ActivationTokens) Issue(pending PendingRegistration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, activationClaims{
		PendingRegistration: pending,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.window)),
		},
	})
	return token.SignedString(a.secret)
}

// Verify returns the embedded registration fields unchanged. Expiry is
// reported distinctly from a bad signature or malformed token.
func (a *ActivationTokens) Verify(tokenString string) (PendingRegistration, error) {
	claims := &activationClaims{}
	if err := a.parse(tokenString, claims); err != nil {
		return PendingRegistration{}, err
	}
	return claims.PendingRegistration, nil
}

// PendingShop is the seller counterpart of PendingRegistration.
type PendingShop struct {
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Password    string        `json:"password"`
	PhoneNumber string        `json:"phoneNumber"`
	Address     string        `json:"address"`
	ZipCode     string        `json:"zipCode"`
	Avatar      models.Avatar `json:"avatar"`
}

type shopActivationClaims struct {
	PendingShop
	jwt.RegisteredClaims
}

func (a *ActivationTokens) IssueShop(pending PendingShop) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, shopActivationClaims{
		PendingShop: pending,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.window)),
		},
	})
	return token.SignedString(a.secret)
}

func (a *ActivationTokens) VerifyShop(tokenString string) (PendingShop, error) {
	claims := &shopActivationClaims{}
	if err := a.parse(tokenString, claims); err != nil {
		return PendingShop{}, err
	}
	return claims.PendingShop, nil
}

func (a *ActivationTokens) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperr.ErrTokenExpired
		}
		return apperr.ErrInvalidToken
	}
	if !token.Valid {
		return apperr.ErrInvalidToken
	}
	return nil
}

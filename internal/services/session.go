package services

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionDuration is how long an issued session cookie stays valid.
const SessionDuration = 90 * 24 * time.Hour

// Session cookie names. Buyers and sellers authenticate independently, so a
// browser can hold both at once.
const (
	UserCookie   = "token"
	SellerCookie = "seller_token"
)

type sessionClaims struct {
	AccountID string `json:"id"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies session tokens and manages the cookie that
// carries them. No revocation list: a token stays valid until its embedded
// expiry elapses or the client discards the cookie.
type Sessions struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
}

func NewSessions(secret, cookieName string) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: SessionDuration, cookieName: cookieName}
}

func (s *Sessions) CookieName() string { return s.cookieName }

// Issue signs a token embedding the account's identity.
func (s *Sessions) Issue(accountID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify returns the embedded account ID, or an error when the signature or
// expiry check fails.
func (s *Sessions) Verify(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.AccountID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.AccountID, nil
}

// SetCookie attaches the session to the client. SameSite=None + Secure so the
// storefront on another origin can send it with credentialed requests.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearCookie invalidates the client-held session by setting an already
// expired null value.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "null",
		Path:     "/",
		Expires:  time.Now(),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// TokenFromRequest extracts the session token from the cookie, falling back
// to an Authorization bearer header for non-browser clients.
func (s *Sessions) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" && c.Value != "null" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

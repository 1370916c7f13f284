package session

import "net/http"

// DefaultMaxAge is the session cookie lifetime in seconds (one average month).
const DefaultMaxAge = 2629746

// CookiePolicy builds the session cookie. Cookies are always HttpOnly,
// SameSite=Lax and scoped to "/".
type CookiePolicy struct {
	Name   string
	MaxAge int

	// Secure marks cookies HTTPS-only. It is set even on plain HTTP
	// requests; the browser decides whether to keep the cookie.
	Secure bool
}

// DefaultCookiePolicy returns the policy for production, or for local
// development when debug is true (Secure off).
func DefaultCookiePolicy(debug bool) CookiePolicy {
	return CookiePolicy{
		Name:   CookieName,
		MaxAge: DefaultMaxAge,
		Secure: !debug,
	}
}

func (p CookiePolicy) name() string {
	if p.Name == "" {
		return CookieName
	}
	return p.Name
}

// SessionCookie returns the cookie that carries token.
func (p CookiePolicy) SessionCookie(token string) *http.Cookie {
	maxAge := p.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &http.Cookie{
		Name:     p.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	}
}

// ClearCookie returns a cookie that makes the browser drop the session.
func (p CookiePolicy) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     p.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	}
}

// CookieWriter sets and clears the session cookie on one response.
type CookieWriter struct {
	w      http.ResponseWriter
	policy CookiePolicy
}

// NewCookieWriter binds policy to w.
func NewCookieWriter(w http.ResponseWriter, policy CookiePolicy) *CookieWriter {
	return &CookieWriter{w: w, policy: policy}
}

// SetSession writes a Set-Cookie header for token.
func (c *CookieWriter) SetSession(token string) {
	http.SetCookie(c.w, c.policy.SessionCookie(token))
}

// ClearSession writes a Set-Cookie header that removes the session.
func (c *CookieWriter) ClearSession() {
	http.SetCookie(c.w, c.policy.ClearCookie())
}

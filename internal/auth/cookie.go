package auth

import (
	"math"
	"net/http"
	"time"
)

// SetSessionCookie stores token in the session cookie until expires.
//
// HttpOnly keeps the token away from page scripts. SameSite=Lax means the
// cookie rides along on top-level navigations but not on cross-site POSTs.
// secure should be true whenever the API is served over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge(expires, time.Now()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// maxAge rounds up to whole seconds. Token expiries are truncated to the
// second, so rounding down would leave a fresh session a second short of
// SessionTTL. An expiry in the past yields -1, which deletes the cookie.
func maxAge(expires, now time.Time) int {
	secs := int(math.Ceil(expires.Sub(now).Seconds()))
	if secs <= 0 {
		return -1
	}
	return secs
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

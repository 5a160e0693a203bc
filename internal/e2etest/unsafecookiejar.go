package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/Manty2503/demo-final/internal/errors"
)

// unsafeCookieJar keeps Secure session and CSRF cookies over plain HTTP so that tests can run against
// http://localhost.
type unsafeCookieJar struct {
	*cookiejar.Jar
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &unsafeCookieJar{Jar: jar}, nil
}

func (u *unsafeCookieJar) SetCookies(url *url.URL, cookies []*http.Cookie) {
	relaxed := make([]*http.Cookie, len(cookies))
	for i, cookie := range cookies {
		c := *cookie
		c.Secure = false
		relaxed[i] = &c
	}
	u.Jar.SetCookies(url, relaxed)
}

package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/publicsuffix"
)

// Cookie is the on-disk form of a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site,omitempty"`
}

type cookieFile struct {
	SavedAt time.Time `json:"saved_at"`
	Cookies []Cookie  `json:"cookies"`
}

// FromNetwork converts protocol cookies to their stored form.
func FromNetwork(in []*network.Cookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return out
}

// Param converts c into a SetCookies parameter. Session cookies (no expiry)
// stay session cookies.
func (c Cookie) Param() *network.CookieParam {
	p := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if c.SameSite != "" {
		p.SameSite = network.CookieSameSite(c.SameSite)
	}
	if c.Expires > 0 {
		sec := int64(c.Expires)
		nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
		exp := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
		p.Expires = &exp
	}
	return p
}

// FilterDomain keeps the cookies whose registrable domain is domain, so a
// tampered state file cannot seed cookies for unrelated sites.
func FilterDomain(cookies []Cookie, domain string) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		host := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil || registrable != domain {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ReadCookies loads a cookie file. A missing file is not an error and yields
// no cookies.
func ReadCookies(path string) ([]Cookie, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	var f cookieFile
	if err := jsoniter.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode cookie file %s: %w", path, err)
	}
	return f.Cookies, nil
}

// WriteCookies replaces the cookie file atomically.
func WriteCookies(path string, cookies []Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create auth state directory: %w", err)
	}
	raw, err := jsoniter.MarshalIndent(cookieFile{SavedAt: time.Now().UTC(), Cookies: cookies}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}
	return nil
}

package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// exportedCookie matches the JSON shape of browser cookie-export
// extensions. Only the fields the calculator session needs are read.
type exportedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expirationDate"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// LoadCookieFile parses a cookie export and normalizes it for playwright:
// leading dots are stripped from domains and unknown sameSite values fall
// back to Lax.
func LoadCookieFile(path string) ([]playwright.OptionalCookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file %s: %w", path, err)
	}

	var exported []exportedCookie
	if err := json.Unmarshal(data, &exported); err != nil {
		return nil, fmt.Errorf("invalid cookie file %s: %w", path, err)
	}

	return normalizeCookies(exported), nil
}

func normalizeCookies(exported []exportedCookie) []playwright.OptionalCookie {
	cookies := make([]playwright.OptionalCookie, 0, len(exported))
	for _, c := range exported {
		domain := strings.TrimPrefix(c.Domain, ".")

		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
			SameSite: sameSiteAttribute(c.SameSite),
		}
		if c.Expires > 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}

		cookies = append(cookies, cookie)
	}
	return cookies
}

func sameSiteAttribute(value string) *playwright.SameSiteAttribute {
	switch strings.ToLower(value) {
	case "strict":
		return playwright.SameSiteAttributeStrict
	case "none":
		return playwright.SameSiteAttributeNone
	default:
		return playwright.SameSiteAttributeLax
	}
}

// ApplyCookies loads a cookie export file into the browser context.
func (b *Browser) ApplyCookies(path string) error {
	cookies, err := LoadCookieFile(path)
	if err != nil {
		return err
	}

	if err := b.context.AddCookies(cookies); err != nil {
		return fmt.Errorf("failed to add cookies: %w", err)
	}

	b.logger.Info("session cookies loaded", "count", len(cookies), "file", path)
	return nil
}

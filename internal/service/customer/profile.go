package customer

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"storefront/internal/domain"
)

// Profile is the public view of a signed-in customer.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar"`
	MemberSince string `json:"memberSince"`
}

const avatarSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` +
	`<rect width="100" height="100" rx="50" fill="#1a1a1a"/>` +
	`<text x="50" y="56" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="42" font-weight="700" fill="#00ff00">%s</text>` +
	`</svg>`

// ProfileOf renders c for display. Customers without an uploaded avatar get
// an SVG data URL showing their initial.
func ProfileOf(c domain.Customer) Profile {
	avatar := c.AvatarURL
	if avatar == "" {
		avatar = DefaultAvatar(c.Username)
	}
	p := Profile{
		ID:       c.ID,
		Username: c.Username,
		Email:    c.Email,
		Avatar:   avatar,
	}
	if !c.CreatedAt.IsZero() {
		p.MemberSince = c.CreatedAt.Format("Jan 2006")
	}
	return p
}

func DefaultAvatar(username string) string {
	initial := "?"
	if r, _ := utf8.DecodeRuneInString(username); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}
	svg := fmt.Sprintf(avatarSVG, escapeXML(initial))
	return "data:image/svg+xml," + url.PathEscape(svg)
}

func escapeXML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

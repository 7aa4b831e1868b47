package platform

import (
	"context"
	"net/http"
	"strings"
)

// User is the identity behind the current credentials.
type User struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
	Emails      []struct {
		Value   string `json:"value"`
		Primary bool   `json:"primary"`
	} `json:"emails,omitempty"`
}

// Email returns the primary email, falling back to the username when the
// identity service returns none.
func (u *User) Email() string {
	for _, e := range u.Emails {
		if e.Primary {
			return e.Value
		}
	}
	if len(u.Emails) > 0 {
		return u.Emails[0].Value
	}
	if strings.Contains(u.UserName, "@") {
		return u.UserName
	}
	return ""
}

// CurrentUser returns the identity of the current credentials. With
// per-request auth this is the end user; with a service credential it is
// the service principal.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/2.0/preview/scim/v2/Me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

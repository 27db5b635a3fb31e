// Package user identifies the storefront visitor behind a request.
package user

// FrontendUser is the visitor as reported by the identity collaborator.
// A nil *FrontendUser means nobody is logged in.
type FrontendUser struct {
	email    string
	loggedIn bool
}

// New creates an immutable FrontendUser.
func New(email string, loggedIn bool) *FrontendUser {
	return &FrontendUser{email: email, loggedIn: loggedIn}
}

// Email returns the user's email address.
func (u *FrontendUser) Email() string {
	if u == nil {
		return ""
	}
	return u.email
}

// IsLoggedIn reports whether the user is authenticated. Nil-safe.
func (u *FrontendUser) IsLoggedIn() bool {
	return u != nil && u.loggedIn
}

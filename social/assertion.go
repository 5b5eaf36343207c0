package social

// Assertion is an externally verified identity claim handed to the linker
// by a federation layer. The provider-assigned id is the stable key; the
// email is only used the first time a provider id is seen.
type Assertion struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"email_verified"`
	Name           string `json:"name,omitempty"`
	Username       string `json:"username,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
}

// Valid reports whether the assertion identifies a provider account.
func (a Assertion) Valid() bool {
	return a.Provider != "" && a.ProviderUserID != ""
}

// VerifiedEmail returns the asserted email only when the provider vouched
// for it.
func (a Assertion) VerifiedEmail() string {
	if !a.EmailVerified {
		return ""
	}
	return a.Email
}

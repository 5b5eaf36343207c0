package auth

// SecretManager resolves the signing material for a token kind.
type SecretManager interface {
	KeyFor(kind TokenKind) []byte
}

// Secrets holds the static signing keys. Access and refresh tokens use
// distinct keys so a leaked or confused access token never verifies as a
// refresh token.
type Secrets struct {
	accessKey  []byte
	refreshKey []byte
}

var _ SecretManager = (*Secrets)(nil)

// NewSecrets builds a Secrets from the configured key strings.
func NewSecrets(accessKey, refreshKey string) (*Secrets, error) {
	if accessKey == "" || refreshKey == "" {
		return nil, ErrNoEmptyString
	}

	return &Secrets{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
	}, nil
}

// KeyFor returns the signing key for the given kind. Unknown kinds fall
// back to the access key; they will fail the kind check during validation
// anyway.
func (s *Secrets) KeyFor(kind TokenKind) []byte {
	if kind == TokenKindRefresh {
		return s.refreshKey
	}
	return s.accessKey
}

package apiclient

import "strings"

// Public path fragments for endpoints that never carry a bearer token.
const (
	PathRegister     = "auth/register"
	PathLogin        = "auth/login"
	PathRefreshToken = "auth/refresh-token"
)

// DefaultPublicPaths are the unauthenticated auth endpoints.
var DefaultPublicPaths = []string{PathRegister, PathLogin, PathRefreshToken}

// Endpoints classifies request paths as public or private by substring
// match against a fixed set of fragments.
type Endpoints struct {
	public []string
}

// NewEndpoints returns a classifier for DefaultPublicPaths plus extra.
func NewEndpoints(extra ...string) Endpoints {
	public := make([]string, 0, len(DefaultPublicPaths)+len(extra))
	public = append(public, DefaultPublicPaths...)
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			public = append(public, p)
		}
	}
	return Endpoints{public: public}
}

// IsPublic reports whether path contains any public fragment.
func (e Endpoints) IsPublic(path string) bool {
	for _, fragment := range e.public {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

// PublicPaths returns a copy of the configured fragments.
func (e Endpoints) PublicPaths() []string {
	return append([]string(nil), e.public...)
}

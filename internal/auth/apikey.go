// Package auth guards the websocket endpoint with static API keys
package auth

// APIKeyAuth provides a simple API key authentication
type APIKeyAuth struct {
	validKeys map[string]struct{}
	open      bool // no keys configured, allow everything
}

// NewAPIKeyAuth creates a new API key authenticator. With no keys configured
// every request is accepted, which is the local development mode.
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	validKeys := make(map[string]struct{})
	for _, key := range keys {
		validKeys[key] = struct{}{}
	}

	return &APIKeyAuth{
		validKeys: validKeys,
		open:      len(keys) == 0,
	}
}

// AddKey adds a new valid API key
func (a *APIKeyAuth) AddKey(key string) {
	a.validKeys[key] = struct{}{}
	a.open = false
}

// IsValidKey checks if a key is valid
func (a *APIKeyAuth) IsValidKey(key string) bool {
	if a.open {
		return true
	}
	_, valid := a.validKeys[key]
	return valid
}

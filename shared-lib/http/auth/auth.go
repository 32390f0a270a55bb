package auth

import (
	"fmt"
	"net/http"
)

// AuthConfig holds authentication configuration for outgoing requests
type AuthConfig struct {
	Type     AuthType          `json:"type"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Token    string            `json:"token,omitempty"`
	APIKey   string            `json:"apiKey,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeCustom AuthType = "custom"
)

// APIKeyHeader is the header carrying the key for AuthTypeAPIKey.
const APIKeyHeader = "X-API-Key"

func NewAPIKeyAuth(apiKey string) *AuthConfig {
	return &AuthConfig{Type: AuthTypeAPIKey, APIKey: apiKey}
}

func NewBearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthTypeBearer, Token: token}
}

// Apply sets the credentials described by the config on req. A nil config
// leaves the request untouched.
func (a *AuthConfig) Apply(req *http.Request) error {
	if a == nil {
		return nil
	}

	switch a.Type {
	case AuthTypeNone, "":
		return nil

	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("username and password required for basic authentication")
		}
		req.SetBasicAuth(a.Username, a.Password)

	case AuthTypeBearer:
		if a.Token == "" {
			return fmt.Errorf("token required for bearer authentication")
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.Token))

	case AuthTypeAPIKey:
		if a.APIKey == "" {
			return fmt.Errorf("API key required for API key authentication")
		}
		req.Header.Set(APIKeyHeader, a.APIKey)

	case AuthTypeCustom:
		if len(a.Headers) == 0 {
			return fmt.Errorf("custom headers required for custom authentication")
		}
		for key, value := range a.Headers {
			if key != "" && value != "" {
				req.Header.Set(key, value)
			}
		}

	default:
		return fmt.Errorf("unsupported authentication type: %s", a.Type)
	}

	return nil
}

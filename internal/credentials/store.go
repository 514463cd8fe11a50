// Package credentials exposes the narrow credential-store contract the
// pipeline consumes. Decryption and key management live in the desktop
// store; this package only hands decrypted values to the orchestrator.
package credentials

import (
	"os"

	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Store provides read-only access to platform credentials
type Store interface {
	Get() (types.Credentials, error)
}

// EnvStore reads credentials from the process environment. The desktop
// front end decrypts its credential file and exports these variables before
// launching the service.
type EnvStore struct{}

// NewEnvStore creates an environment-backed credential store
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Get returns the credentials currently present in the environment.
// Missing values are returned as empty strings; validation happens in the
// orchestrator's preflight so the failure is classified there.
func (s *EnvStore) Get() (types.Credentials, error) {
	return types.Credentials{
		Username: os.Getenv(constants.EnvNaverID),
		Secret:   os.Getenv(constants.EnvNaverPW),
		APIKeys: map[string]string{
			constants.ServiceGemini: os.Getenv(constants.EnvGeminiAPIKey),
		},
	}, nil
}

// StaticStore holds fixed credentials, used by tests
type StaticStore struct {
	Creds types.Credentials
}

// Get returns the fixed credentials
func (s *StaticStore) Get() (types.Credentials, error) {
	return s.Creds, nil
}

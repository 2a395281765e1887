package secrets

import "context"

// Provider defines a generic secrets manager interface.
// Concrete implementations (AWS, static maps in tests, etc.) can satisfy this.
type Provider interface {
	// GetSecret retrieves a secret by name and returns its JSON object as a key-value map.
	GetSecret(ctx context.Context, name string) (map[string]string, error)
}

// StaticProvider serves secrets from memory. Useful for local runs and tests.
type StaticProvider map[string]map[string]string

// GetSecret implements Provider.
func (p StaticProvider) GetSecret(_ context.Context, name string) (map[string]string, error) {
	s, ok := p[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return s, nil
}

// NotFoundError is returned when a named secret does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "secret [" + e.Name + "] not found"
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys a backend cannot hold.
var ErrInvalidKey = errors.New("store: invalid key")

// Store gets, sets and deletes string values by key. Get reports a missing
// key through ok rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Ref names a key inside a namespace, such as one user's copy of a tracker.
type Ref struct {
	Namespace string
	Key       string
}

// Identifier returns the storage key for the ref.
func (r Ref) Identifier() (string, error) {
	key := strings.TrimSpace(r.Key)
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	namespace := strings.Trim(strings.TrimSpace(r.Namespace), "/")
	if namespace == "" {
		return key, nil
	}
	return namespace + "/" + key, nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	return nil
}

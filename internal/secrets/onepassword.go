package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/1Password/connect-sdk-go/connect"
)

// OnePasswordResolver resolves secrets from a 1Password vault via the
// Connect API. Each secret is a vault item titled by name, with its
// value in a field labeled "value".
type OnePasswordResolver struct {
	client  connect.Client
	vaultID string
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewOnePasswordResolver builds a resolver against a running Connect
// server.
func NewOnePasswordResolver(host, token, vaultID string, logger *slog.Logger) (*OnePasswordResolver, error) {
	client := connect.NewClientWithUserAgent(host, token, "siem-pipeline")
	return &OnePasswordResolver{
		client:  client,
		vaultID: vaultID,
		logger:  logger,
		cache:   make(map[string]string),
	}, nil
}

// GetSecret looks up name as a vault item title, returning the value
// of its "value" field. A missing item is not configured: empty
// string, no error.
func (r *OnePasswordResolver) GetSecret(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	if v, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return v, nil
	}
	r.mu.RUnlock()

	items, err := r.client.GetItemsByTitle(name, r.vaultID)
	if err != nil {
		if isNotFoundError(err) {
			return "", nil
		}
		return "", fmt.Errorf("listing 1password items for %q: %w", name, err)
	}
	if len(items) == 0 {
		return "", nil
	}

	item, err := r.client.GetItem(items[0].ID, r.vaultID)
	if err != nil {
		return "", fmt.Errorf("getting 1password item %q: %w", name, err)
	}

	for _, field := range item.Fields {
		if strings.EqualFold(field.Label, "value") {
			r.mu.Lock()
			r.cache[name] = field.Value
			r.mu.Unlock()
			return field.Value, nil
		}
	}

	r.logger.Warn("1password item has no value field", "name", name)
	return "", nil
}

func isNotFoundError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found") ||
		strings.Contains(strings.ToLower(err.Error()), "404")
}

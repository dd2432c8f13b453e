// Package service implements the subscriber sync collaborators: the
// authorization API client, the policy keeper and the subscription admin.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/allisson/integration-events/internal/errors"
)

// AuthorizationClient fetches the client to allowed-endpoints map from the
// authorization API.
type AuthorizationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAuthorizationClient creates an AuthorizationClient for the given base URL.
func NewAuthorizationClient(baseURL string, timeout time.Duration) *AuthorizationClient {
	return &AuthorizationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchClientEndpoints retrieves every registered client and the endpoint
// patterns it is authorized for.
func (c *AuthorizationClient) FetchClientEndpoints(ctx context.Context) (map[string][]string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/client-authorisations", nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, apperrors.Wrap(err, "calling authorization api")
	}
	defer response.Body.Close() //nolint:errcheck

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authorization api returned status %d", response.StatusCode)
	}

	var clients map[string][]string
	if err := json.NewDecoder(response.Body).Decode(&clients); err != nil {
		return nil, apperrors.Wrap(err, "decoding authorization api response")
	}

	return clients, nil
}

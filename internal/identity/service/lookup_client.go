// Package service implements the external identity lookup collaborators over
// HTTP. All three lookups are read-only and treat 404 as the ordinary "unknown"
// case rather than an error.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/allisson/integration-events/internal/errors"
)

// LookupClient calls the identity APIs: person-exists by subject id, identifier
// lookup by prison number and prisoner lookup by prison number. It implements
// the resolver's three collaborator interfaces.
type LookupClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewLookupClient creates a LookupClient for the given API base URL.
func NewLookupClient(baseURL string, timeout time.Duration) *LookupClient {
	return &LookupClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PersonExists reports whether the person index knows the given subject id.
func (c *LookupClient) PersonExists(ctx context.Context, subjectID string) (bool, error) {
	status, err := c.get(ctx, fmt.Sprintf("/exists/person/%s", url.PathEscape(subjectID)), nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("person exists lookup returned status %d", status)
	}
}

// LookupSubjectID maps a prison number to its probation case reference, or the
// empty string when the mapping is unknown.
func (c *LookupClient) LookupSubjectID(ctx context.Context, nomsNumber string) (string, error) {
	var body struct {
		CRN string `json:"crn"`
	}

	status, err := c.get(ctx, fmt.Sprintf("/identifiers/nomis/%s", url.PathEscape(nomsNumber)), &body)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		return body.CRN, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("identifier lookup returned status %d", status)
	}
}

// LookupPrisonID returns the current prison for a prison number, or the empty
// string when the prisoner is unknown.
func (c *LookupClient) LookupPrisonID(ctx context.Context, nomsNumber string) (string, error) {
	var body struct {
		PrisonID string `json:"prisonId"`
	}

	status, err := c.get(ctx, fmt.Sprintf("/prisoners/%s", url.PathEscape(nomsNumber)), &body)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		return body.PrisonID, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("prisoner lookup returned status %d", status)
	}
}

// get performs a GET against the API and decodes a JSON body into out when the
// response is 200 and out is non-nil. Returns the status code for the caller to
// interpret.
func (c *LookupClient) get(ctx context.Context, path string, out any) (int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, apperrors.Wrapf(err, "building request for %s", path)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, apperrors.Wrapf(err, "calling %s", path)
	}
	defer response.Body.Close() //nolint:errcheck

	if response.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return 0, apperrors.Wrapf(err, "decoding response from %s", path)
		}
	}

	return response.StatusCode, nil
}

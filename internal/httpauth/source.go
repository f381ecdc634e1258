package httpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SourceValidator implements TicketValidator and BasicValidator against the
// source repository's ticket-issue and "-me-" endpoints.
type SourceValidator struct {
	baseURL    string
	httpClient *http.Client
}

// NewSourceValidator constructs a SourceValidator.
func NewSourceValidator(baseURL string, httpClient *http.Client) *SourceValidator {
	return &SourceValidator{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// ValidateBasic issues a ticket with the given credentials: 201 means
// success, 401/403 means failure, anything else is fail-with-reason.
func (s *SourceValidator) ValidateBasic(ctx context.Context, username, password string) (bool, error) {
	body := fmt.Sprintf(`{"userId":%q,"password":%q}`, username, password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/-default-/public/authentication/versions/1/tickets",
		strings.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("ticket issuance returned unexpected status %s", resp.Status)
	}
}

type meResponse struct {
	Entry struct {
		ID string `json:"id"`
	} `json:"entry"`
}

// ValidateTicket checks a ticket against the "-me-" endpoint and resolves
// the true username from the response.
func (s *SourceValidator) ValidateTicket(ctx context.Context, ticket string) (string, bool, error) {
	q := url.Values{"alf_ticket": []string{ticket}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/-default-/public/alfresco/versions/1/people/-me-?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", false, nil
	}
	if resp.StatusCode/100 != 2 {
		return "", false, fmt.Errorf("-me- endpoint returned unexpected status %s", resp.Status)
	}
	var out meResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, err
	}
	return out.Entry.ID, true, nil
}

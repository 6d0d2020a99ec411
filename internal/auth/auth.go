// Package auth resolves signed session tokens into account identities and
// capability grants by calling an external auth service. The core treats the
// exchange as opaque: one call, one identity, one boolean grant.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Capability flags understood by the auth service.
type Capability string

const (
	// CapabilityPublish allows creating and mutating seasons and episodes.
	CapabilityPublish Capability = "publish_shows"
	// CapabilityConsume allows the viewer-facing read paths.
	CapabilityConsume Capability = "consume_shows"
)

var (
	// ErrCapabilityDenied means the session is valid but lacks the
	// requested capability.
	ErrCapabilityDenied = errors.New("capability denied")
	// ErrInvalidSession means the session token could not be resolved.
	ErrInvalidSession = errors.New("invalid session token")
)

// CapabilityChecker exchanges a signed session token for an account identity
// and a grant decision for one capability.
type CapabilityChecker interface {
	ExchangeSessionAndCheckCapability(ctx context.Context, sessionToken string, capability Capability) (accountID string, granted bool, err error)
}

// ServiceChecker is the HTTP implementation of CapabilityChecker against the
// configured auth service.
type ServiceChecker struct {
	baseURL string
	client  *http.Client
}

// NewServiceChecker creates a checker talking to the auth service at baseURL
func NewServiceChecker(baseURL string, timeout time.Duration) *ServiceChecker {
	return &ServiceChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type exchangeRequest struct {
	SessionToken string `json:"session_token"`
	Capability   string `json:"capability"`
}

type exchangeResponse struct {
	AccountID string `json:"account_id"`
	Granted   bool   `json:"granted"`
}

// ExchangeSessionAndCheckCapability implements CapabilityChecker.
func (s *ServiceChecker) ExchangeSessionAndCheckCapability(ctx context.Context, sessionToken string, capability Capability) (string, bool, error) {
	body, err := json.Marshal(exchangeRequest{
		SessionToken: sessionToken,
		Capability:   string(capability),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/sessions/exchange", strings.NewReader(string(body)))
	if err != nil {
		return "", false, fmt.Errorf("failed to build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("auth service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized:
		return "", false, ErrInvalidSession
	default:
		return "", false, fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var decoded exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", false, fmt.Errorf("failed to decode exchange response: %w", err)
	}
	if decoded.AccountID == "" {
		return "", false, ErrInvalidSession
	}
	return decoded.AccountID, decoded.Granted, nil
}

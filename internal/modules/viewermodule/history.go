package viewermodule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HistoryClient resolves an account's continue-watching position for an
// episode from the watch-history service. A missing position is (nil, nil);
// transport failures propagate as-is.
type HistoryClient interface {
	ContinuePosition(ctx context.Context, accountID, episodeID string) (*int64, error)
}

// HTTPHistoryClient is the HTTP implementation of HistoryClient.
type HTTPHistoryClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPHistoryClient creates a client for the watch-history service
func NewHTTPHistoryClient(baseURL string, timeout time.Duration) *HTTPHistoryClient {
	return &HTTPHistoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type positionResponse struct {
	PositionMs int64 `json:"position_ms"`
}

// ContinuePosition implements HistoryClient.
func (h *HTTPHistoryClient) ContinuePosition(ctx context.Context, accountID, episodeID string) (*int64, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/positions/%s", h.baseURL, accountID, episodeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var decoded positionResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode history response: %w", err)
		}
		return &decoded.PositionMs, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("history service returned status %d", resp.StatusCode)
	}
}

package playfab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError represents an error reported by the PlayFab API, either as an
// error envelope or as an HTTP failure status.
type APIError struct {
	StatusCode int
	Code       string // PlayFab error name, e.g. "SegmentNotFound"
	ErrorCode  int    // PlayFab numeric error code
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("playfab api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("playfab api error %d: %s", e.StatusCode, e.Message)
}

// envelope is the wrapper around every PlayFab API response.
type envelope struct {
	Code         int             `json:"code"`
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	Error        string          `json:"error"`
	ErrorCode    int             `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
}

// post sends payload to path and decodes the envelope's data into result.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.secretKey != "" {
		req.Header.Set("X-SecretKey", c.secretKey)
	}

	c.logger.Debug("playfab request", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 || env.Error != "" {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Error,
			ErrorCode:  env.ErrorCode,
			Message:    env.ErrorMessage,
			Body:       body,
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("unmarshal response data: %w", err)
	}

	return nil
}

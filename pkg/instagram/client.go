// Package instagram talks to the Instagram web API: profile lookup,
// story reels, and media downloads.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storywatch/pkg/auth"
	apperrors "storywatch/pkg/errors"
	"storywatch/pkg/logger"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Client is an authenticated Instagram web API client.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cookies    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a client authenticated with the given session
// credentials.
func NewClient(creds *auth.Credentials, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	userAgent := defaultUserAgent
	if creds != nil && creds.UserAgent != "" {
		userAgent = creds.UserAgent
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     webAppID,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":         BaseURL + "/",
		},
		cookies: make(map[string]string),
		baseURL: BaseURL,
		logger:  log,
	}

	if creds != nil {
		c.cookies["sessionid"] = creds.SessionID
		c.cookies["csrftoken"] = creds.CSRFToken
		c.headers["X-CSRFToken"] = creds.CSRFToken
	}
	return c
}

// SetHeader sets a custom header for subsequent requests.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBaseURL overrides the API base URL.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// doRequest sends a request with the configured headers and cookies.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for name, value := range c.cookies {
		if value != "" {
			req.AddCookie(&http.Cookie{Name: name, Value: value})
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.Wrap(apperrors.ErrorTypeNetwork, "request failed", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// Get performs a GET request to the given URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeUnknown, "failed to create request", err)
	}
	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response into
// target.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

// checkResponseStatus maps HTTP status codes to typed errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &apperrors.Error{
			Type:    apperrors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 500 {
			c.logger.ErrorWithFields("server error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return &apperrors.Error{
				Type:    apperrors.ErrorTypeServerError,
				Message: "server error",
				Code:    resp.StatusCode,
			}
		}
		if resp.StatusCode >= 400 {
			return &apperrors.Error{
				Type:    apperrors.ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// FetchProfile fetches a user's profile, primarily for its numeric id.
func (c *Client) FetchProfile(ctx context.Context, username string) (*ProfileResponse, error) {
	url := c.baseURL + profilePath(username)

	c.logger.DebugWithFields("fetching profile", map[string]interface{}{
		"username": username,
	})

	var response ProfileResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, &apperrors.Error{
			Type:    apperrors.ErrorTypeAuth,
			Message: "Instagram requires authentication to view this profile",
			Code:    http.StatusUnauthorized,
		}
	}
	if response.Data.User.ID == "" {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "profile not found: "+username)
	}
	return &response, nil
}

// FetchReel fetches the active story reel for a user id. A user with
// no active story yields a response with an empty reel.
func (c *Client) FetchReel(ctx context.Context, userID string) (*ReelsMediaResponse, error) {
	url := c.baseURL + reelPath(userID)

	c.logger.DebugWithFields("fetching story reel", map[string]interface{}{
		"user_id": userID,
	})

	var response ReelsMediaResponse
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// DownloadMedia downloads story media bytes from a CDN URL.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	resp, err := c.Get(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeNetwork, "failed to download media", err)
	}

	c.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"url":  mediaURL,
		"size": len(data),
	})
	return data, nil
}

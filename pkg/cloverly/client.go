package cloverly

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const defaultBaseURL = "https://api.cloverly.com/2021-03"

// Config holds offset API settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// APIError is a non-2xx response from the offset API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloverly API error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the Cloverly offset API.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  logrus.FieldLogger
}

func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	return newClient(cfg, &fasthttp.Client{
		MaxConnsPerHost: 64,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
	}, logger)
}

func newClient(cfg Config, httpClient *fasthttp.Client, logger logrus.FieldLogger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.APIKey == "" {
		logger.Warn("Cloverly API key is not set, offset estimates and purchases will fail")
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		logger:  logger,
	}
}

// Estimate prices offsetting carbonInKg, optionally restricted to a project type.
func (c *Client) Estimate(ctx context.Context, carbonInKg float64, projectType string) (*Estimate, error) {
	body := estimateRequest{
		Carbon:      Amount{Value: carbonInKg, Units: "kg"},
		ProjectType: projectType,
	}
	var estimate Estimate
	if err := c.do(ctx, fasthttp.MethodPost, "/estimates", body, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

// Purchase converts an estimate into a purchase.
func (c *Client) Purchase(ctx context.Context, estimateSlug string) (*Purchase, error) {
	var purchase Purchase
	if err := c.do(ctx, fasthttp.MethodPost, "/purchases", purchaseRequest{EstimateSlug: estimateSlug}, &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// ListProjects returns the project catalogue, optionally filtered by type.
func (c *Client) ListProjects(ctx context.Context, projectType string) ([]Project, error) {
	path := "/offset-projects"
	if projectType != "" {
		path += "?type=" + url.QueryEscape(projectType)
	}
	var list projectList
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if body != nil {
		payload, err := fastJSONMarshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		req.SetBodyRaw(payload)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Cloverly request failed")
		return fmt.Errorf("cloverly request %s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   status,
		"duration": time.Since(start).String(),
	}).Debug("Cloverly request completed")

	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		var eb errorBody
		msg := fasthttp.StatusMessage(status)
		if err := fastJSONUnmarshal(resp.Body(), &eb); err == nil && eb.Message != "" {
			msg = eb.Message
		}
		return &APIError{StatusCode: status, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := fastJSONUnmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

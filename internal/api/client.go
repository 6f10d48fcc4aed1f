// Package api is the HTTP client for the resume analysis backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Backend endpoints, relative to the configured origin
const (
	AnalyzePath   = "/api/analyze"
	SkillInfoPath = "/api/skill_info"
)

// Multipart field names for each group and source kind
const (
	FieldResumePDF  = "resume_pdf"
	FieldResumeText = "resume_text"
	FieldJDPDF      = "jd_pdf"
	FieldJDText     = "jd_text"
)

const (
	maxResponseSize       = 10 << 20
	skillInfoFallbackText = "Failed to fetch skill info."
)

// Options configures a Client
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	APIKey         string
	UserAgent      string
	CircuitBreaker config.CircuitBreakerConfig
	RateLimit      config.ClientRateLimit
	// Transport is wrapped with otelhttp. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// OptionsFromConfig maps application config onto client options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.API.Timeout,
		APIKey:         cfg.API.APIKey,
		UserAgent:      cfg.API.UserAgent,
		CircuitBreaker: cfg.API.CircuitBreaker,
		RateLimit:      cfg.API.RateLimit,
	}
}

// Client talks to /api/analyze and /api/skill_info
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	validate  *validator.Validate
	logger    *errors.Logger

	analyzeBreaker *endpointBreaker
	skillBreaker   *endpointBreaker
}

// NewClient creates a backend client
func NewClient(opts Options, logger *errors.Logger) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var limiter *rate.Limiter
	if opts.RateLimit.Enabled && opts.RateLimit.RequestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RateLimit.RequestsPerMin)/60.0), max(opts.RateLimit.BurstCapacity, 1))
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		userAgent: opts.UserAgent,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter:        limiter,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger,
		analyzeBreaker: newEndpointBreaker("analyze", opts.CircuitBreaker, logger),
		skillBreaker:   newEndpointBreaker("skill_info", opts.CircuitBreaker, logger),
	}
}

// Analyze submits both sources and decodes the scored result
func (c *Client) Analyze(ctx context.Context, req types.AnalysisRequest) (types.AnalysisResult, error) {
	build := func() (*http.Request, error) {
		return newMultipartRequest(ctx, c.baseURL+AnalyzePath, req)
	}

	body, err := c.do(ctx, c.analyzeBreaker, build, func(status int) string {
		return fmt.Sprintf("HTTP error! status: %d", status)
	})
	if err != nil {
		return types.AnalysisResult{}, err
	}

	var result types.AnalysisResult
	if err := c.decode(body, &result); err != nil {
		return types.AnalysisResult{}, err
	}
	return result.Normalize(), nil
}

// SkillInfo looks up a description and a learning link for skill
func (c *Client) SkillInfo(ctx context.Context, skill string) (types.SkillInfo, error) {
	if strings.TrimSpace(skill) == "" {
		return types.SkillInfo{}, errors.NewValidationError(errors.ErrCodeMissingInput, "Skill name is required.", nil)
	}

	payload, err := json.Marshal(map[string]string{"skill": skill})
	if err != nil {
		return types.SkillInfo{}, errors.NewInternalError(errors.ErrCodeInvalidInput, "Failed to encode skill request", err)
	}
	build := func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SkillInfoPath, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	body, err := c.do(ctx, c.skillBreaker, build, func(int) string { return skillInfoFallbackText })
	if err != nil {
		return types.SkillInfo{}, err
	}

	var info types.SkillInfo
	if err := c.decode(body, &info); err != nil {
		return types.SkillInfo{}, err
	}
	return info, nil
}

// Stats reports breaker state per endpoint
func (c *Client) Stats() map[string]any {
	return map[string]any{
		"analyze":    c.analyzeBreaker.GetStats(),
		"skill_info": c.skillBreaker.GetStats(),
	}
}

// IsHealthy is false while any endpoint breaker is open
func (c *Client) IsHealthy() bool {
	return c.analyzeBreaker.IsHealthy() && c.skillBreaker.IsHealthy()
}

func (c *Client) do(ctx context.Context, breaker *endpointBreaker, build func() (*http.Request, error), fallback func(status int) string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewNetworkError(errors.ErrCodeRequestFailed, "request cancelled while rate limited", err)
		}
	}

	return breaker.Execute(func() ([]byte, error) {
		req, err := build()
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeRequestFailed, "Failed to build request", err)
		}
		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		c.logger.Debug("Calling analysis backend", "url", req.URL.String(), "request_id", requestID)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.NewNetworkError(errors.ErrCodeRequestFailed, err.Error(), err).
				WithContext("request_id", requestID)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, errors.NewNetworkError(errors.ErrCodeRequestFailed, "failed to read response body", err).
				WithContext("request_id", requestID)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			message := errorMessage(body)
			if message == "" {
				message = fallback(resp.StatusCode)
			}
			return nil, errors.NewHTTPError(resp.StatusCode, message).WithContext("request_id", requestID)
		}
		return body, nil
	})
}

func (c *Client) decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewNetworkError(errors.ErrCodeInvalidResponse, "invalid response from analysis service", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return errors.NewNetworkError(errors.ErrCodeInvalidResponse, "invalid response from analysis service", err)
	}
	return nil
}

// errorMessage pulls the "error" field out of a failure body
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// newMultipartRequest streams the request form. Exactly one field is written
// per group. The writer only starts once the request exists, so a bad URL
// leaves nothing blocked on the pipe.
func newMultipartRequest(ctx context.Context, url string, req types.AnalysisRequest) (*http.Request, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	go func() {
		err := writeSource(mw, req.Resume, FieldResumePDF, FieldResumeText)
		if err == nil {
			err = writeSource(mw, req.JobDescription, FieldJDPDF, FieldJDText)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return httpReq, nil
}

func writeSource(mw *multipart.Writer, src types.Source, pdfField, textField string) error {
	if src.Kind == types.SourceText {
		return mw.WriteField(textField, src.Text)
	}
	if src.File == nil {
		return fmt.Errorf("%s: no file selected", pdfField)
	}

	part, err := mw.CreateFormFile(pdfField, src.File.Name)
	if err != nil {
		return err
	}
	rc, err := src.File.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", src.File.Name, err)
	}
	defer func() { _ = rc.Close() }()
	_, err = io.Copy(part, rc)
	return err
}

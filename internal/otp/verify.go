package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minimart/internal/logging"
)

// VerifyConfig configures a VerifyClient.
type VerifyConfig struct {
	BaseURL     string // e.g. https://verify.twilio.com
	AccountSID  string
	AuthToken   string
	ServiceSID  string
	CountryCode string // prepended to local numbers, e.g. +65
	Timeout     time.Duration
}

// VerifyClient talks to a Twilio-style Verify v2 REST API.
type VerifyClient struct {
	cfg    VerifyConfig
	client *http.Client
	log    logging.Logger
}

// NewVerifyClient creates a client with a bounded per-request timeout.
func NewVerifyClient(cfg VerifyConfig, log logging.Logger) *VerifyClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &VerifyClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With("component", "otp"),
	}
}

type verificationResponse struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}

// IssueChallenge sends an SMS code to phone.
func (c *VerifyClient) IssueChallenge(ctx context.Context, phone string) (*Challenge, error) {
	to, err := NormalizePhone(c.cfg.CountryCode, phone)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Channel", "sms")

	var resp verificationResponse
	status, err := c.post(ctx, "Verifications", form, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		c.log.Warn(ctx, "unexpected verification status", "http_status", status)
		return nil, ErrGatewayFailure
	}
	return &Challenge{SID: resp.SID, To: resp.To, Status: resp.Status}, nil
}

// CheckChallenge verifies code for phone. A 404 from the service means no
// pending challenge exists for that number and is reported as Rejected.
func (c *VerifyClient) CheckChallenge(ctx context.Context, phone, code string) (Status, error) {
	to, err := NormalizePhone(c.cfg.CountryCode, phone)
	if err != nil {
		return Rejected, err
	}
	if strings.TrimSpace(code) == "" {
		return Rejected, nil
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Code", strings.TrimSpace(code))

	var resp verificationResponse
	status, err := c.post(ctx, "VerificationCheck", form, &resp)
	if err != nil {
		return Rejected, err
	}
	switch {
	case status == http.StatusNotFound:
		return Rejected, nil
	case status != http.StatusOK && status != http.StatusCreated:
		c.log.Warn(ctx, "unexpected verification check status", "http_status", status)
		return Rejected, ErrGatewayFailure
	}
	return mapStatus(resp.Status), nil
}

func mapStatus(s string) Status {
	switch strings.ToLower(s) {
	case "approved":
		return Approved
	case "expired", "canceled", "deleted":
		return Expired
	default:
		return Rejected
	}
}

// post sends a form to {base}/v2/Services/{sid}/{resource} and decodes a
// successful JSON body into out. It returns the HTTP status for the caller to
// interpret; 429 and transport failures become errors here.
func (c *VerifyClient) post(ctx context.Context, resource string, form url.Values, out any) (int, error) {
	endpoint := fmt.Sprintf("%s/v2/Services/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.ServiceSID), resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("build verify request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error(ctx, "verify request failed", "resource", resource, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, ErrTooManyRequests
	}
	if resp.StatusCode >= 500 {
		c.log.Error(ctx, "verify service error", "resource", resource, "http_status", resp.StatusCode)
		return resp.StatusCode, ErrGatewayFailure
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrGatewayFailure, err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode body: %v", ErrGatewayFailure, err)
		}
	}
	return resp.StatusCode, nil
}

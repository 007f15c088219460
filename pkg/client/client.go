package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record carries the six certificate fields of one candidate or input row.
type Record struct {
	RollNo string `json:"roll_no"`
	Name   string `json:"name"`
	Course string `json:"course"`
	Branch string `json:"branch"`
	Grade  string `json:"grade"`
	Year   string `json:"year"`
}

// IngestResult reports a confirmed batch submission.
type IngestResult struct {
	HashCount    int    `json:"hash_count"`
	TxID         string `json:"tx_id"`
	CostConsumed uint64 `json:"cost_consumed"`
}

// VerificationResult is the outcome of checking one candidate record.
type VerificationResult struct {
	IsValid       bool      `json:"is_valid"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	CandidateHash string    `json:"candidate_hash"`
}

// LedgerInfo describes the server's ledger connection.
type LedgerInfo struct {
	ContractAddress string `json:"contract_address"`
	ActiveSigner    string `json:"active_signer"`
	NetworkID       string `json:"network_id"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is the CertVault SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
// Ingestion waits for ledger confirmation, so keep this generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client for the given server base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IngestFile uploads a certificate CSV and anchors its rows in the ledger.
func (c *Client) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/certificates/ingest", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	result := &IngestResult{}
	if err := c.do(req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Verify checks one candidate record against the ledger. A negative result
// (IsValid=false) is a successful call, not an error.
func (c *Client) Verify(ctx context.Context, record Record) (*VerificationResult, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/certificates/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	result := &VerificationResult{}
	if err := c.do(req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Info returns the server's ledger connection details.
func (c *Client) Info(ctx context.Context) (*LedgerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/info", nil)
	if err != nil {
		return nil, err
	}

	info := &LedgerInfo{}
	if err := c.do(req, info); err != nil {
		return nil, err
	}
	return info, nil
}

// do executes the request and decodes a JSON response into out. Non-2xx
// responses become an *APIError carrying the server's error message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

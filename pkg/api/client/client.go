package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides typed access to the CyberVault API for interactive tools.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	// Detail carries the raw notarization CLI output when the API reports it.
	Detail string
}

func (e APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("api request failed with status %d", e.Status)
	} else {
		msg = fmt.Sprintf("api request failed (%d): %s", e.Status, msg)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return extractError(resp.StatusCode, resp.Body)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(status int, body io.Reader) APIError {
	apiErr := APIError{Status: status}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(payload.Message)
	apiErr.Detail = strings.TrimSpace(payload.Error)
	return apiErr
}

// User reflects API user payloads.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is returned by signup and login.
type Session struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, &resp)
	return resp, err
}

// Signup creates an account and returns a token.
func (c *Client) Signup(ctx context.Context, username, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{"username": username, "password": password}, &resp)
	return resp, err
}

// DID is a registered decentralized identifier.
type DID struct {
	ID               int64  `json:"id"`
	DID              string `json:"did"`
	WalletAddress    string `json:"walletAddress"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"createdAt"`
	BlockchainTxHash string `json:"blockchainTxHash,omitempty"`
	BindingTxHash    string `json:"bindingTxHash,omitempty"`
	OnChain          bool   `json:"onChain,omitempty"`
}

// DIDRegistration is the response to a DID registration.
type DIDRegistration struct {
	DID
	Blockchain struct {
		Registered     bool   `json:"registered"`
		Bound          bool   `json:"bound"`
		RegistrationTx string `json:"registrationTx"`
		BindingTx      string `json:"bindingTx"`
		BindingError   string `json:"bindingError"`
		OperationID    string `json:"operationId"`
	} `json:"blockchain"`
}

// ListDIDs returns every DID, newest first.
func (c *Client) ListDIDs(ctx context.Context) ([]DID, error) {
	var dids []DID
	err := c.do(ctx, http.MethodGet, "/api/dids", nil, &dids)
	return dids, err
}

// RegisterDID anchors and stores a DID.
func (c *Client) RegisterDID(ctx context.Context, did, wallet, status string) (DIDRegistration, error) {
	body := map[string]string{"did": did, "walletAddress": wallet, "status": status}
	var resp DIDRegistration
	err := c.do(ctx, http.MethodPost, "/api/dids", body, &resp)
	return resp, err
}

// UpdateDIDStatus changes the status of a DID.
func (c *Client) UpdateDIDStatus(ctx context.Context, id int64, status string) (DID, error) {
	var resp DID
	err := c.do(ctx, http.MethodPatch, "/api/dids/"+strconv.FormatInt(id, 10)+"/status", map[string]string{"status": status}, &resp)
	return resp, err
}

// Document is a notarized document record.
type Document struct {
	ID                  int64  `json:"id"`
	Hash                string `json:"hash"`
	FileName            string `json:"fileName"`
	Category            string `json:"category"`
	Timestamp           int64  `json:"timestamp"`
	CreatedAt           int64  `json:"createdAt"`
	BlockchainTxHash    string `json:"blockchainTxHash,omitempty"`
	BlockchainTimestamp string `json:"blockchainTimestamp,omitempty"`
	OnChain             bool   `json:"onChain,omitempty"`
}

// DocumentNotarization is the response to a notarization.
type DocumentNotarization struct {
	Document
	Blockchain struct {
		Notarized       bool   `json:"notarized"`
		TransactionHash string `json:"transactionHash"`
		OperationID     string `json:"operationId"`
	} `json:"blockchain"`
}

// Verification is the result of verifying a hash.
type Verification struct {
	Verified bool            `json:"verified"`
	Document json.RawMessage `json:"document,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ListDocuments returns every notarized document, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := c.do(ctx, http.MethodGet, "/api/documents", nil, &docs)
	return docs, err
}

// NotarizeDocument anchors and stores a document hash.
func (c *Client) NotarizeDocument(ctx context.Context, hash, fileName, category string, timestamp int64) (DocumentNotarization, error) {
	body := map[string]any{"hash": hash, "fileName": fileName, "category": category, "timestamp": timestamp}
	var resp DocumentNotarization
	err := c.do(ctx, http.MethodPost, "/api/documents", body, &resp)
	return resp, err
}

// VerifyDocument checks whether hash has been notarized.
func (c *Client) VerifyDocument(ctx context.Context, hash string) (Verification, error) {
	var resp Verification
	err := c.do(ctx, http.MethodGet, "/api/documents/verify/"+url.PathEscape(hash), nil, &resp)
	return resp, err
}

// SearchDocuments finds documents whose hash, file name or category contain query.
func (c *Client) SearchDocuments(ctx context.Context, query string) ([]Document, error) {
	var docs []Document
	err := c.do(ctx, http.MethodGet, "/api/documents/search?q="+url.QueryEscape(query), nil, &docs)
	return docs, err
}

// Stats summarises dashboard counters.
type Stats struct {
	RegisteredDIDs      int    `json:"registeredDids"`
	NotarizedDocuments  int    `json:"notarizedDocuments"`
	Verifications       int    `json:"verifications"`
	StorageUsed         string `json:"storageUsed"`
	BlockchainConnected bool   `json:"blockchainConnected"`
}

// ChainStatus reports CLI availability.
type ChainStatus struct {
	CLIAvailable bool   `json:"cliAvailable"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// Stats fetches dashboard counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp)
	return resp, err
}

// ChainStatus fetches notarization CLI availability.
func (c *Client) ChainStatus(ctx context.Context) (ChainStatus, error) {
	var resp ChainStatus
	err := c.do(ctx, http.MethodGet, "/api/iota/status", nil, &resp)
	return resp, err
}

// OperationStep is one recorded step of an operation.
type OperationStep struct {
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Operation is the recorded trail of a multi-step creation.
type Operation struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Subject     string          `json:"subject"`
	Status      string          `json:"status"`
	Steps       []OperationStep `json:"steps"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// ListOperations returns recent operations, newest first.
func (c *Client) ListOperations(ctx context.Context, limit int) ([]Operation, error) {
	path := "/api/operations"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var ops []Operation
	err := c.do(ctx, http.MethodGet, path, nil, &ops)
	return ops, err
}

// GetOperation returns one operation by id.
func (c *Client) GetOperation(ctx context.Context, id string) (Operation, error) {
	var op Operation
	err := c.do(ctx, http.MethodGet, "/api/operations/"+url.PathEscape(id), nil, &op)
	return op, err
}

package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProofRequest is the JSON body posted to a verified-computing node. The
// encryption key is the symmetric password, RSA-encrypted with the node's
// public key and hex-encoded.
type ProofRequest struct {
	JobID          int64   `json:"job_id"`
	FileID         int64   `json:"file_id"`
	FileURL        string  `json:"file_url"`
	EncryptionKey  string  `json:"encryption_key"`
	EncryptionSeed string  `json:"encryption_seed"`
	Nonce          *string `json:"nonce"`
	ProofURL       *string `json:"proof_url"`
}

// ProofRequestError reports a non-200 response from the node; the body is
// kept as the diagnostic payload.
type ProofRequestError struct {
	Status int
	Body   string
}

func (e *ProofRequestError) Error() string {
	return fmt.Sprintf("proof request failed: status %d: %s", e.Status, e.Body)
}

// Client posts proof requests to verified-computing nodes.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RequestProof submits the proof request and waits for the node to accept it.
// Any status other than 200 is a *ProofRequestError.
func (c *Client) RequestProof(ctx context.Context, nodeURL string, req ProofRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal proof request: %w", err)
	}

	url := strings.TrimRight(nodeURL, "/") + "/proof"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("proof request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ProofRequestError{Status: resp.StatusCode, Body: string(diag)}
	}
	return nil
}

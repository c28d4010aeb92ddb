package ipfs

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
)

const defaultAPIBase = "https://api.pinata.cloud"

// FileMeta identifies an uploaded file on the pinning service.
type FileMeta struct {
	ID  string
	URL string
}

// Pinata uploads encrypted payloads to IPFS through the Pinata pinning API.
type Pinata struct {
	apiBase    string
	gatewayURL string
	jwt        string
	httpClient *http.Client
}

func NewPinata(jwt, gatewayURL string) *Pinata {
	return &Pinata{
		apiBase:    defaultAPIBase,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		jwt:        jwt,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload pins the payload and returns its content id and retrieval URL.
func (p *Pinata) Upload(ctx context.Context, name string, data []byte) (FileMeta, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return FileMeta{}, fmt.Errorf("multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return FileMeta{}, fmt.Errorf("multipart write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return FileMeta{}, fmt.Errorf("multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return FileMeta{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return FileMeta{}, fmt.Errorf("pin file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FileMeta{}, fmt.Errorf("pin file: status %d: %s", resp.StatusCode, diag)
	}

	var pinned struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return FileMeta{}, fmt.Errorf("pin response: %w", err)
	}
	if pinned.IpfsHash == "" {
		return FileMeta{}, fmt.Errorf("pin response missing hash")
	}

	return FileMeta{
		ID:  pinned.IpfsHash,
		URL: p.shareLink(pinned.IpfsHash),
	}, nil
}

// ShareLink returns a stable retrieval URL for a pinned file.
func (p *Pinata) ShareLink(_ context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("file id is required")
	}
	return p.shareLink(id), nil
}

func (p *Pinata) shareLink(id string) string {
	return p.gatewayURL + "/ipfs/" + id
}

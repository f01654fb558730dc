package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIKey = "SKIMZY_API_KEY"
	envAPIURL = "SKIMZY_API_URL"

	defaultAPIURL = "http://localhost:8080"

	// Generation runs an LLM over the whole document.
	defaultRequestTimeout = 3 * time.Minute
)

type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClientWithCmd builds a client from the --api-key and --api-url
// flags, the environment (a .env file included) and saved credentials. A nil
// cmd skips the flags.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var flagKey, flagURL string
	if cmd != nil {
		flagKey, _ = cmd.Flags().GetString("api-key")
		flagURL, _ = cmd.Flags().GetString("api-url")
	}

	creds, err := ResolveCredentials(flagKey, flagURL)
	if err != nil {
		return nil, err
	}
	if creds.Source == SourceNone {
		return nil, fmt.Errorf("%s not set (run 'skimzy auth login' or set environment variable)", envAPIKey)
	}

	return NewAPIClientWithConfig(creds.APIKey, creds.APIURL), nil
}

// NewAPIClientWithConfig creates an APIClient with explicit config. apiKey may
// be empty for public endpoints.
func NewAPIClientWithConfig(apiKey, baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// APIResponse is the success envelope. Data is empty for 204 responses.
type APIResponse struct {
	Data json.RawMessage `json:"data,omitempty"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode    int
	Message       string
	Code          string
	LibraryItemID int64
}

func (e *APIError) Error() string {
	if e.LibraryItemID != 0 {
		return fmt.Sprintf("API error (%d): %s (library item %d)", e.StatusCode, e.Message, e.LibraryItemID)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type errorEnvelope struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	LibraryItemID int64  `json:"library_item_id"`
}

func (c *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodGet, path, nil)
}

func (c *APIClient) Post(ctx context.Context, path string, body any) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

func (c *APIClient) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodDelete, path, nil)
}

// PostFile sends r as the multipart form field named field.
func (c *APIClient) PostFile(ctx context.Context, path, field, filename, contentType string, r io.Reader) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body any) (*APIResponse, error) {
	if body == nil {
		return c.do(ctx, method, path, nil, "")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json")
}

func (c *APIClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil || env.Error == "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
		}
		return nil, &APIError{
			StatusCode:    resp.StatusCode,
			Message:       env.Error,
			Code:          env.Code,
			LibraryItemID: env.LibraryItemID,
		}
	}

	var apiResp APIResponse
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &apiResp, nil
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &apiResp, nil
}

// Decode unmarshals the response data into v.
func (r *APIResponse) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ProgressFunc is a callback for reporting download progress.
type ProgressFunc func(current, total int64)

type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}

// DownloadFileWithProgress saves url to outputPath. The request carries no
// credentials since url is a presigned object store link.
func (c *APIClient) DownloadFileWithProgress(ctx context.Context, url, outputPath string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if onProgress != nil {
		reader = &progressReader{reader: resp.Body, total: resp.ContentLength, onProgress: onProgress}
	}

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

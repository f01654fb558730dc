package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_SendsBearerAndDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"data":{"answer":"42","source_count":3,"no_relevant_content":false}}`))
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig(testAPIKey, srv.URL)
	resp, err := api.Post(context.Background(), "/ask-question", AskRequest{LibraryItemID: 1, Question: "q"})
	require.NoError(t, err)

	var answer AskResponse
	require.NoError(t, resp.Decode(&answer))
	assert.Equal(t, "42", answer.Answer)
	assert.Equal(t, 3, answer.SourceCount)
}

func TestAPIClient_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig(testAPIKey, srv.URL)
	resp, err := api.Delete(context.Background(), "/library/5")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Error(t, resp.Decode(&struct{}{}))
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
		wantItem int64
	}{
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"error":"library item not found","code":"NOT_FOUND"}`,
			wantMsg:  "library item not found",
			wantCode: "NOT_FOUND",
		},
		{
			name:     "partial ingestion",
			status:   http.StatusInternalServerError,
			body:     `{"error":"document stored but not indexed","code":"PARTIAL_INGESTION","library_item_id":12}`,
			wantMsg:  "document stored but not indexed",
			wantCode: "PARTIAL_INGESTION",
			wantItem: 12,
		},
		{
			name:    "plain text body",
			status:  http.StatusBadGateway,
			body:    "bad gateway\n",
			wantMsg: "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			api := NewAPIClientWithConfig(testAPIKey, srv.URL)
			_, err := api.Get(context.Background(), "/library/1")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantItem, apiErr.LibraryItemID)
		})
	}
}

func TestAPIClient_PostFile(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, pdf, data)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":9}}`))
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig(testAPIKey, srv.URL)
	resp, err := api.PostFile(context.Background(), "/upload-pdf", "file", "notes.pdf", "application/pdf", bytes.NewReader(pdf))
	require.NoError(t, err)

	var item LibraryItem
	require.NoError(t, resp.Decode(&item))
	assert.Equal(t, int64(9), item.ID)
}

func TestDownloadFileWithProgress(t *testing.T) {
	content := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(content))
	}))
	defer srv.Close()

	outPath := filepath.Join(t.TempDir(), "source.pdf")
	var last int64
	api := NewAPIClientWithConfig(testAPIKey, srv.URL)
	err := api.DownloadFileWithProgress(context.Background(), srv.URL+"/object", outPath, func(current, total int64) {
		last = current
	})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, int64(len(content)), last)
}

func TestProgressReader_ReportsMonotonicProgress(t *testing.T) {
	data := []byte("hello world")
	var values []int64
	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			values = append(values, current)
		},
	}

	buf := make([]byte, 3)
	for {
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
	}
	assert.Equal(t, int64(len(data)), values[len(values)-1])
}

func TestNewAPIClientWithCmd_RequiresKey(t *testing.T) {
	useTempCredentials(t)

	_, err := NewAPIClientWithCmd(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIKey)
}

func TestNewAPIClientWithCmd_DefaultURL(t *testing.T) {
	useTempCredentials(t)
	t.Setenv(envAPIKey, testAPIKey)

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
	assert.Equal(t, testAPIKey, api.apiKey)
}

package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes cmd against srv with credentials from the environment.
func runCommand(t *testing.T, srv *httptest.Server, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	useTempCredentials(t)
	t.Setenv(envAPIKey, testAPIKey)
	t.Setenv(envAPIURL, srv.URL)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const itemJSON = `{"data":{"id":42,"source":"https://go.dev/doc","content_type":"url","title":"Effective Go",
"summary":"How to write clear Go.","index_status":"indexed","created_at":"2026-01-01T00:00:00Z",
"flashcards":[{"question":"What is gofmt?","answer":"The formatter"}],
"mcqs":[{"question":"Pick one","options":["a","b"],"answer":"b"}],
"chunk_count":4,"updated_at":"2026-01-01T00:00:00Z"}}`

func TestAddCmd_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-from-url", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://go.dev/doc", body["url"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	out, err := runCommand(t, srv, AddCmd(), "https://go.dev/doc")
	require.NoError(t, err)
	assert.Contains(t, out, "Effective Go")
	assert.Contains(t, out, "1 flashcards, 1 questions, 4 chunks indexed")
}

func TestAddCmd_PDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-pdf", r.URL.Path)
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "notes.pdf", header.Filename)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0600))

	_, err := runCommand(t, srv, AddCmd(), path)
	require.NoError(t, err)
}

func TestAddCmd_RejectsOtherFiles(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := runCommand(t, srv, AddCmd(), "notes.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither an http(s) URL nor a .pdf file")
}

func TestLibraryGetCmd_PrintsStudyMaterial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/42", r.URL.Path)
		_, _ = w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	out, err := runCommand(t, srv, LibraryCmd(), "get", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: What is gofmt?")
	assert.Contains(t, out, "* b) b")
}

func TestLibraryListCmd_PassesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":1,"title":"One","content_type":"pdf","index_status":"indexed"}],"cursor":"def","has_more":true}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, srv, LibraryCmd(), "list", "-n", "5", "--cursor", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "One")
	assert.Contains(t, out, "--cursor def")
}

func TestLibraryCmd_InvalidID(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := runCommand(t, srv, LibraryCmd(), "delete", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid library item id")
}

func TestAskCmd_JoinsQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(42), req.LibraryItemID)
		assert.Equal(t, "what is gofmt", req.Question)
		_, _ = w.Write([]byte(`{"data":{"answer":"The formatter.","chat_turn_id":8,"source_count":2,"no_relevant_content":false}}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, srv, AskCmd(), "42", "what", "is", "gofmt")
	require.NoError(t, err)
	assert.Contains(t, out, "The formatter.")
	assert.Contains(t, out, "(2 sources)")
}

func TestHistoryCmd_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat-history/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	out, err := runCommand(t, srv, HistoryCmd(), "42")
	require.NoError(t, err)
	assert.Contains(t, out, "No questions asked yet.")
}

//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skimzy/skimzy/internal/api/handlers"
	"github.com/skimzy/skimzy/internal/extract"
	"github.com/skimzy/skimzy/internal/repository"
	"github.com/skimzy/skimzy/internal/server"
	"github.com/skimzy/skimzy/internal/service"
	"github.com/skimzy/skimzy/internal/storage"
	"github.com/skimzy/skimzy/internal/testutil"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

const embedDimension = 64

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	MinIOC       *testutil.MinIOContainer
	Pool         *pgxpool.Pool
	Index        vectorindex.Index
	ServerURL    string
	ServerCloser func()
	Pages        *httptest.Server
	BinaryDir    string
	UserID       int64
	APIKey       string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres and MinIO, a page server and the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewMinIOContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3C.AccessKey,
		SecretAccessKey: s3C.SecretKey,
		Bucket:          "e2e-uploads",
		UsersFolder:     "users",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	index := vectorindex.NewPGVector(pool, embedDimension)
	if err := index.EnsureCollection(ctx); err != nil {
		t.Fatalf("failed to prepare vector index: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, index, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		MinIOC:       s3C,
		Pool:         pool,
		Index:        index,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Pages:        httptest.NewServer(http.HandlerFunc(servePage)),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Pages != nil {
		e.Pages.Close()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.MinIOC != nil {
		_ = e.MinIOC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		_ = os.RemoveAll(e.BinaryDir)
	}
}

// Signup creates a user through the public endpoint and keeps its API key.
func (e *E2ETestEnv) Signup(email string) (int64, string) {
	resp, err := e.Post("/signup", map[string]string{"email": email, "name": "E2E"}, "")
	if err != nil {
		e.T.Fatalf("failed to sign up: %v", err)
	}

	var created struct {
		UserID int64  `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		e.T.Fatalf("failed to parse signup response: %v", err)
	}
	if e.APIKey == "" {
		e.UserID = created.UserID
		e.APIKey = created.Token
	}
	return created.UserID, created.Token
}

// PageURL returns the address of a page served by the test page server.
func (e *E2ETestEnv) PageURL(name string) string {
	return e.Pages.URL + "/" + name
}

// BuildBinaries builds the skimzy CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "skimzy-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "skimzy"), "./cmd/skimzy")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build skimzy: %v\n%s", err, out)
	}
}

// RunSkimzy runs the CLI with the environment's credentials and an empty config dir.
func (e *E2ETestEnv) RunSkimzy(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "skimzy"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = append(os.Environ(),
		"SKIMZY_API_KEY="+e.APIKey,
		"SKIMZY_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.BinaryDir,
		"HOME="+e.BinaryDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse is either envelope the server writes.
type APIResponse struct {
	StatusCode    int
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error,omitempty"`
	Code          string          `json:"code,omitempty"`
	LibraryItemID int64           `json:"library_item_id,omitempty"`
}

// HTTPError is returned for 4xx and 5xx responses.
type HTTPError struct {
	Response *APIResponse
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Response.StatusCode, e.Response.Error, e.Response.Code)
}

func (e *E2ETestEnv) Get(path, apiKey string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, apiKey)
}

func (e *E2ETestEnv) Post(path string, body any, apiKey string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, apiKey)
}

func (e *E2ETestEnv) Delete(path, apiKey string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, apiKey)
}

func (e *E2ETestEnv) doRequest(method, path string, body any, apiKey string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		return apiResp, &HTTPError{Response: apiResp}
	}
	return apiResp, nil
}

func startServer(t *testing.T, pool *pgxpool.Pool, index vectorindex.Index, s3Client *storage.S3Client, port int) (string, func()) {
	model := &fakeModel{}
	timeouts := service.Timeouts{LLM: 10 * time.Second, Embed: 10 * time.Second, Vector: 10 * time.Second}
	chunkCfg := service.ChunkConfig{Size: 40, Overlap: 5}

	itemRepo := repository.NewLibraryItemRepository(pool)
	jobRepo := repository.NewReindexJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	authSvc := service.NewAuthService(repository.NewUserRepository(pool), repository.NewAPIKeyRepository(pool), nil).
		WithTxRunner(txRunner)

	ingestSvc := service.NewIngestionService(service.IngestionDeps{
		Items:     itemRepo,
		TxRunner:  txRunner,
		Generator: model,
		Embedder:  model,
		Index:     index,
		Extractor: extract.NewWeb(nil, extract.NewHTTPFetcher(&http.Client{Timeout: 5 * time.Second}), extract.WebConfig{}),
		PDF:       extract.PDF{},
		Storage:   s3Client,
	}, service.IngestionConfig{Chunk: chunkCfg, Timeouts: timeouts})
	querySvc := service.NewQueryService(itemRepo, repository.NewChatTurnRepository(pool), model, index, model,
		service.QueryConfig{SearchLimit: 5, Timeouts: timeouts})
	librarySvc := service.NewLibraryService(itemRepo, index, s3Client, timeouts.Vector)
	reindexSvc := service.NewReindexService(itemRepo, jobRepo, model, index, chunkCfg, timeouts)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  authSvc,
		IngestHandler:  handlers.NewIngestHandler(ingestSvc),
		LibraryHandler: handlers.NewLibraryHandler(librarySvc, reindexSvc),
		ChatHandler:    handlers.NewChatHandler(querySvc),
		AuthHandler:    handlers.NewAuthHandler(authSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

var pages = map[string]string{
	"goroutines": `<html><head><title>Goroutines</title></head><body><article>
<h1>Goroutines</h1>
<p>A goroutine is a lightweight thread managed by the Go runtime. Starting one costs a few kilobytes of stack.</p>
<p>Channels connect goroutines. A send on an unbuffered channel blocks until a receiver is ready.</p>
<p>The select statement waits on several channel operations and runs the first one that can proceed.</p>
</article></body></html>`,
	"empty": `<html><body><script>window.app = {}</script></body></html>`,
}

func servePage(w http.ResponseWriter, r *http.Request) {
	page, ok := pages[strings.TrimPrefix(r.URL.Path, "/")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// fakeModel stands in for the LLM provider. Embeddings are bags of hashed
// words, so chunks sharing words with a question rank first.
type fakeModel struct{}

func (fakeModel) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, embedDimension)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
			v[h.Sum32()%embedDimension]++
		}
		v[0] += 0.01
		out[i] = v
	}
	return out, nil
}

func (fakeModel) Generate(_ context.Context, text string) (string, error) {
	return `{"title":"Goroutines and channels","summary":"` + firstWords(text, 8) + `",
"flashcards":[{"question":"What blocks an unbuffered send?","answer":"No ready receiver"}],
"mcqs":[{"question":"What runs goroutines?","options":["The kernel","The Go runtime"],"answer":"The Go runtime"}]}`, nil
}

func (fakeModel) Answer(_ context.Context, question string, chunks []string) (string, error) {
	return fmt.Sprintf("Answer to %q from %d chunks", question, len(chunks)), nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.ReplaceAll(strings.Join(words, " "), `"`, "")
}

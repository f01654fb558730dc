// Package testutil starts the backing services integration and e2e tests
// run against.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/skimzy/skimzy/internal/database"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	minioImage    = "minio/minio:RELEASE.2025-04-22T22-12-26Z"
	qdrantImage   = "qdrant/qdrant:v1.16.2"

	startupTimeout = 90 * time.Second
)

// service is a started container plus the host it is reachable on.
type service struct {
	Container testcontainers.Container
	Host      string
}

func (s service) Terminate(context.Context) error {
	return testcontainers.TerminateContainer(s.Container)
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) service {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		t.Fatalf("%s host: %v", req.Image, err)
	}
	return service{Container: c, Host: host}
}

func mappedPort(ctx context.Context, t *testing.T, s service, port string) int {
	t.Helper()
	p, err := s.Container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = s.Terminate(ctx)
		t.Fatalf("mapped port %s: %v", port, err)
	}
	return p.Int()
}

// PostgresContainer runs Postgres with the pgvector extension available.
type PostgresContainer struct {
	service
	Port     int
	User     string
	Password string
	Database string
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()
	s := start(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "skimzy",
			"POSTGRES_PASSWORD": "skimzy",
			"POSTGRES_DB":       "skimzy",
		},
		// The server restarts once after initdb, hence two occurrences.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(startupTimeout),
	})
	return &PostgresContainer{
		service:  s,
		Port:     mappedPort(ctx, t, s, "5432/tcp"),
		User:     "skimzy",
		Password: "skimzy",
		Database: "skimzy",
	}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		pc.User, pc.Password, pc.Host, pc.Port, pc.Database)
}

// MinIOContainer is the S3-compatible store for upload tests.
type MinIOContainer struct {
	service
	Port      int
	AccessKey string
	SecretKey string
}

func NewMinIOContainer(ctx context.Context, t *testing.T) *MinIOContainer {
	t.Helper()
	s := start(ctx, t, testcontainers.ContainerRequest{
		Image:        minioImage,
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(startupTimeout),
	})
	return &MinIOContainer{
		service:   s,
		Port:      mappedPort(ctx, t, s, "9000/tcp"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

func (mc *MinIOContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", mc.Host, mc.Port)
}

// QdrantContainer exposes Qdrant's gRPC port, the one the client uses.
type QdrantContainer struct {
	service
	Port int
}

func NewQdrantContainer(ctx context.Context, t *testing.T) *QdrantContainer {
	t.Helper()
	s := start(ctx, t, testcontainers.ContainerRequest{
		Image:        qdrantImage,
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForHTTP("/readyz").WithPort("6333/tcp"),
			wait.ForListeningPort("6334/tcp"),
		).WithStartupTimeout(startupTimeout),
	})
	return &QdrantContainer{service: s, Port: mappedPort(ctx, t, s, "6334/tcp")}
}

// NewTestPool connects to pc and applies the migrations in migrationsDir
// with the same migrator the daemon uses.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	dir, err := filepath.Abs(migrationsDir)
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	if err := database.Migrate(pc.ConnectionString(), "file://"+filepath.ToSlash(dir)); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: pc.ConnectionString(), MaxConns: 8})
	if err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	return pool
}

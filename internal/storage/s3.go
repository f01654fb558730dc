// Package storage keeps uploaded source PDFs in S3-compatible object storage
// (MinIO, Backblaze B2, AWS S3).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const (
	pdfContentType = "application/pdf"

	defaultUsersFolder = "users"
	downloadURLExpiry  = time.Hour

	// Stored on each object so a key can be traced back to its owner.
	metaUserID       = "user-id"
	metaOriginalName = "original-filename"
)

type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsersFolder     string
	PublicBaseURL   string
	UsePathStyle    bool
}

type S3Client struct {
	client      *s3.Client
	presigner   *s3.PresignClient
	bucket      string
	usersFolder string
	baseURL     string
}

// StoredObject identifies an uploaded file. URL is the public location,
// which is only reachable when the bucket is public; callers hand out
// presigned URLs instead.
type StoredObject struct {
	Key string
	URL string
}

func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	folder := strings.Trim(cfg.UsersFolder, "/")
	if folder == "" {
		folder = defaultUsersFolder
	}
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Client{
		client:      client,
		presigner:   s3.NewPresignClient(client),
		bucket:      cfg.Bucket,
		usersFolder: folder,
		baseURL:     baseURL,
	}, nil
}

// PutPDF uploads a PDF under <folder>/<user id>/<uuid>__<filename>. The
// original filename is kept in object metadata and used when the file is
// downloaded.
func (c *S3Client) PutPDF(ctx context.Context, userID int64, filename string, data []byte) (*StoredObject, error) {
	key := ObjectKey(c.usersFolder, userID, uuid.NewString(), filename)

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(c.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(pdfContentType),
		ContentDisposition: aws.String(contentDisposition(filename)),
		Metadata: map[string]string{
			metaUserID:       strconv.FormatInt(userID, 10),
			metaOriginalName: path.Base(filename),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &StoredObject{Key: key, URL: c.baseURL + "/" + key}, nil
}

// GenerateDownloadURL presigns a GET valid for one hour.
func (c *S3Client) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(downloadURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteObject succeeds for keys that are already gone.
func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket when HeadBucket reports it missing. Other
// HeadBucket failures, such as bad credentials, are returned as is.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds <folder>/<user id>/<id>__<filename> with the filename
// reduced to a safe character set.
func ObjectKey(folder string, userID int64, id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Trim(unsafeFilename.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		name = "upload.pdf"
	}
	return fmt.Sprintf("%s/%d/%s__%s", folder, userID, id, name)
}

func contentDisposition(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload.pdf"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

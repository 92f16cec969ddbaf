package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/zjrosen/draftpad/internal/config"
)

// HTTPSigner asks a forum signature endpoint for a target. The request is a
// form post of name, mimetype, auth and jwt; the response is a SignedTarget.
type HTTPSigner struct {
	URL    string
	JWT    string
	Client *http.Client
}

func (s HTTPSigner) RequestSignedTarget(ctx context.Context, name, mimetype string) (SignedTarget, error) {
	form := url.Values{
		"name":     {name},
		"mimetype": {mimetype},
		"auth":     {"true"},
		"jwt":      {s.JWT},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return SignedTarget{}, fmt.Errorf("building signature request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return SignedTarget{}, fmt.Errorf("signature request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var target SignedTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return SignedTarget{}, fmt.Errorf("decoding signature response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if target.Status == StatusSuccess {
			target.Status = ""
		}
		if target.Error == "" {
			target.Error = fmt.Sprintf("status %d", resp.StatusCode)
		}
	}
	return target, nil
}

// MinioSigner presigns PUT URLs against an S3-compatible bucket.
type MinioSigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioSigner connects to the configured endpoint. No request is made
// until the first target is signed.
func NewMinioSigner(cfg config.MinioConfig) (*MinioSigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MinioSigner{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (s *MinioSigner) RequestSignedTarget(ctx context.Context, name, _ string) (SignedTarget, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, name, s.expiry)
	if err != nil {
		return SignedTarget{Status: "Failure", Error: err.Error()}, nil
	}
	return SignedTarget{Status: StatusSuccess, Result: u.String()}, nil
}

// NewSigner builds the signer selected by cfg.Backend. It returns nil for
// "none", in which case image uploads are refused.
func NewSigner(cfg config.UploadConfig) (Signer, error) {
	switch cfg.Backend {
	case "http":
		return HTTPSigner{URL: cfg.SignatureURL, JWT: cfg.JWT, Client: &http.Client{Timeout: cfg.Timeout}}, nil
	case "minio":
		s, err := NewMinioSigner(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

// Package upload stores images behind signed upload URLs. A Signer hands out
// a one-off PUT target for a file name and type, the bytes are PUT there, and
// the public address is the target without its query string.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/tracing"
)

// StatusSuccess is the only SignedTarget status that carries a usable target.
const StatusSuccess = "Success"

// DefaultMimeType is assumed when a data URL does not name one.
const DefaultMimeType = "image/png"

// ErrSignatureRejected is returned when the signer refuses to issue a target.
var ErrSignatureRejected = errors.New("upload signature rejected")

// File is an image ready to upload.
type File struct {
	Name string
	Type string
	Data []byte
}

// SignedTarget is a signer's answer: on success Result is the PUT URL.
type SignedTarget struct {
	Status string `json:"status"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Signer issues upload targets.
type Signer interface {
	RequestSignedTarget(ctx context.Context, name, mimetype string) (SignedTarget, error)
}

// Image is an uploaded image.
type Image struct {
	URL string
}

// Uploader runs the sign-then-transfer sequence.
type Uploader struct {
	signer Signer
	client *http.Client
	tracer trace.Tracer
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient sets the client used for the transfer.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) { u.client = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(u *Uploader) { u.tracer = t }
}

// NewUploader creates an uploader using signer.
func NewUploader(signer Signer, opts ...Option) *Uploader {
	u := &Uploader{signer: signer, client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload signs and transfers f, returning where it can be read from.
func (u *Uploader) Upload(ctx context.Context, f File) (Image, error) {
	target, err := u.sign(ctx, f)
	if err != nil {
		return Image{}, err
	}
	if err := u.transfer(ctx, target, f); err != nil {
		return Image{}, err
	}
	public, _, _ := strings.Cut(target, "?")
	log.Info(log.CatUpload, "uploaded image", "name", f.Name, "url", public)
	return Image{URL: public}, nil
}

func (u *Uploader) sign(ctx context.Context, f File) (target string, err error) {
	ctx, span := tracing.Start(ctx, u.tracer, tracing.SpanUploadSign,
		attribute.String(tracing.AttrUploadName, f.Name),
		attribute.String(tracing.AttrUploadType, f.Type))
	defer func() { tracing.End(span, err) }()

	signed, err := u.signer.RequestSignedTarget(ctx, f.Name, f.Type)
	if err != nil {
		return "", fmt.Errorf("requesting upload target: %w", err)
	}
	if signed.Status != StatusSuccess {
		return "", fmt.Errorf("%w: %s", ErrSignatureRejected, signed.Error)
	}
	parsed, err := url.Parse(signed.Result)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid target %q", ErrSignatureRejected, signed.Result)
	}
	return signed.Result, nil
}

func (u *Uploader) transfer(ctx context.Context, target string, f File) (err error) {
	ctx, span := tracing.Start(ctx, u.tracer, tracing.SpanUploadPut,
		attribute.String(tracing.AttrUploadName, f.Name),
		attribute.Int("upload.bytes", len(f.Data)))
	defer func() { tracing.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", f.Type)
	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploading %s: status %d", f.Name, resp.StatusCode)
	}
	return nil
}

// DecodeDataURL turns a base64 data URL into a File with a random name.
// mime overrides the type in the URL; with neither, DefaultMimeType is used.
func DecodeDataURL(dataURL, mime string) (File, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return File{}, fmt.Errorf("not a data URL")
	}
	meta := strings.TrimPrefix(header, "data:")
	if !strings.HasSuffix(meta, ";base64") {
		return File{}, fmt.Errorf("data URL is not base64 encoded")
	}
	if mime == "" {
		mime = strings.TrimSuffix(meta, ";base64")
	}
	if mime == "" {
		mime = DefaultMimeType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return File{}, fmt.Errorf("decoding data URL: %w", err)
	}
	return File{Name: uuid.NewString(), Type: mime, Data: data}, nil
}

// IsBase64Image reports whether src is an inline jpeg, gif or png.
func IsBase64Image(src string) bool {
	for _, kind := range []string{"jpeg", "gif", "png"} {
		if strings.HasPrefix(src, "data:image/"+kind+";base64") {
			return true
		}
	}
	return false
}

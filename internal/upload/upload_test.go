package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/draftpad/internal/config"
)

type signerFunc func(ctx context.Context, name, mimetype string) (SignedTarget, error)

func (f signerFunc) RequestSignedTarget(ctx context.Context, name, mimetype string) (SignedTarget, error) {
	return f(ctx, name, mimetype)
}

// bucket is a PUT target that records what it received.
type bucket struct {
	srv         *httptest.Server
	body        []byte
	contentType string
	status      int
}

func newBucket(t *testing.T) *bucket {
	t.Helper()
	b := &bucket{status: http.StatusOK}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.body, _ = io.ReadAll(r.Body)
		b.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(b.status)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func TestUpload_StripsQueryFromTarget(t *testing.T) {
	b := newBucket(t)
	var gotName, gotType string
	signer := signerFunc(func(_ context.Context, name, mimetype string) (SignedTarget, error) {
		gotName, gotType = name, mimetype
		return SignedTarget{Status: StatusSuccess, Result: b.srv.URL + "/img/" + name + "?X-Amz-Signature=abc"}, nil
	})

	img, err := NewUploader(signer).Upload(context.Background(), File{Name: "a.png", Type: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, b.srv.URL+"/img/a.png", img.URL)
	require.Equal(t, "a.png", gotName)
	require.Equal(t, "image/png", gotType)
	require.Equal(t, []byte{1, 2, 3}, b.body)
	require.Equal(t, "image/png", b.contentType)
}

func TestUpload_SignatureRejected(t *testing.T) {
	signer := signerFunc(func(context.Context, string, string) (SignedTarget, error) {
		return SignedTarget{Status: "Failure", Error: "not logged in"}, nil
	})
	_, err := NewUploader(signer).Upload(context.Background(), File{Name: "a", Type: "image/png"})
	require.ErrorIs(t, err, ErrSignatureRejected)
	require.ErrorContains(t, err, "not logged in")
}

func TestUpload_InvalidTarget(t *testing.T) {
	for _, result := range []string{"", "ftp://x/y", "javascript:alert(1)", "/relative"} {
		signer := signerFunc(func(context.Context, string, string) (SignedTarget, error) {
			return SignedTarget{Status: StatusSuccess, Result: result}, nil
		})
		_, err := NewUploader(signer).Upload(context.Background(), File{Name: "a"})
		assert.ErrorIs(t, err, ErrSignatureRejected, "result=%q", result)
	}
}

func TestUpload_TransferFailure(t *testing.T) {
	b := newBucket(t)
	b.status = http.StatusForbidden
	signer := signerFunc(func(context.Context, string, string) (SignedTarget, error) {
		return SignedTarget{Status: StatusSuccess, Result: b.srv.URL + "/x?sig=1"}, nil
	})
	_, err := NewUploader(signer).Upload(context.Background(), File{Name: "x", Type: "image/gif"})
	require.ErrorContains(t, err, "status 403")
	require.NotErrorIs(t, err, ErrSignatureRejected)
}

// ============================================================================
// Data URLs
// ============================================================================

func TestDecodeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("GIF89a"))

	f, err := DecodeDataURL("data:image/gif;base64,"+payload, "")
	require.NoError(t, err)
	require.Equal(t, "image/gif", f.Type)
	require.Equal(t, []byte("GIF89a"), f.Data)
	_, err = uuid.Parse(f.Name)
	require.NoError(t, err, "names are uuids")

	f, err = DecodeDataURL("data:;base64,"+payload, "")
	require.NoError(t, err)
	require.Equal(t, DefaultMimeType, f.Type)

	f, err = DecodeDataURL("data:image/gif;base64,"+payload, "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", f.Type)
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	for _, in := range []string{"", "hello", "data:image/png,raw", "data:image/png;base64,***"} {
		_, err := DecodeDataURL(in, "")
		assert.Error(t, err, in)
	}
}

func TestIsBase64Image(t *testing.T) {
	assert.True(t, IsBase64Image("data:image/png;base64,AAAA"))
	assert.True(t, IsBase64Image("data:image/jpeg;base64,AAAA"))
	assert.True(t, IsBase64Image("data:image/gif;base64,AAAA"))
	assert.False(t, IsBase64Image("data:image/webp;base64,AAAA"))
	assert.False(t, IsBase64Image("https://cdn/x.png"))
}

// ============================================================================
// Signers
// ============================================================================

func TestHTTPSigner(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_ = json.NewEncoder(w).Encode(SignedTarget{Status: StatusSuccess, Result: "https://s3/x?sig"})
	}))
	defer srv.Close()

	target, err := HTTPSigner{URL: srv.URL, JWT: "tok"}.RequestSignedTarget(context.Background(), "x.png", "image/png")
	require.NoError(t, err)
	require.Equal(t, SignedTarget{Status: StatusSuccess, Result: "https://s3/x?sig"}, target)
	require.Equal(t, "x.png", form.Get("name"))
	require.Equal(t, "image/png", form.Get("mimetype"))
	require.Equal(t, "true", form.Get("auth"))
	require.Equal(t, "tok", form.Get("jwt"))
}

func TestHTTPSigner_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"Failure","error":"bad jwt"}`))
	}))
	defer srv.Close()

	target, err := HTTPSigner{URL: srv.URL}.RequestSignedTarget(context.Background(), "x", "image/png")
	require.NoError(t, err)
	require.Equal(t, "bad jwt", target.Error)
	require.NotEqual(t, StatusSuccess, target.Status)
}

func TestHTTPSigner_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := HTTPSigner{URL: srv.URL}.RequestSignedTarget(context.Background(), "x", "image/png")
	require.ErrorContains(t, err, "status 502")
}

func TestMinioSigner_Presigns(t *testing.T) {
	s, err := NewMinioSigner(config.MinioConfig{
		Endpoint:  "minio.example:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "uploads",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	target, err := s.RequestSignedTarget(context.Background(), "abc.png", "image/png")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, target.Status)

	u, err := url.Parse(target.Result)
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, "minio.example:9000", u.Host)
	require.Equal(t, "/uploads/abc.png", u.Path)
	require.True(t, strings.Contains(u.RawQuery, "X-Amz-Signature="))
}

func TestNewSigner(t *testing.T) {
	s, err := NewSigner(config.UploadConfig{Backend: "none"})
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = NewSigner(config.UploadConfig{Backend: "http", SignatureURL: "https://x/sign"})
	require.NoError(t, err)
	require.IsType(t, HTTPSigner{}, s)

	s, err = NewSigner(config.UploadConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b", Region: "us-east-1"}})
	require.NoError(t, err)
	require.IsType(t, &MinioSigner{}, s)
}

package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/errs"
)

// HTTPUploader posts each artifact as a multipart form: the file under
// "image" plus name, camera, date and time fields.
type HTTPUploader struct {
	url    string
	client *http.Client
}

// NewHTTPUploader targets serverURL + imageEndpoint. When oauth.TokenURL is
// set requests carry a client-credentials bearer token.
func NewHTTPUploader(ctx context.Context, cfg config.HTTPConfig, oauth config.OAuth2Config) (*HTTPUploader, error) {
	if cfg.ServerURL == "" || cfg.ImageEndpoint == "" {
		return nil, errs.Configf("delivery.http.serverURL and imageEndpoint are required")
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if oauth.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			TokenURL:     oauth.TokenURL,
			Scopes:       oauth.Scopes,
		}
		// token requests share the timeout of uploads
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		client = cc.Client(ctx)
		client.Timeout = cfg.Timeout
	}

	return &HTTPUploader{
		url:    JoinURL(cfg.ServerURL, cfg.ImageEndpoint),
		client: client,
	}, nil
}

// URL is the upload target.
func (u *HTTPUploader) URL() string {
	return u.url
}

// Upload implements Uploader. Any 2xx status confirms delivery.
func (u *HTTPUploader) Upload(ctx context.Context, d artifact.Descriptor) error {
	body, contentType, err := buildForm(d)
	if err != nil {
		return errs.Wrap(errs.ErrDelivery, "delivery", "form", d.FilePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return errs.Wrap(errs.ErrDelivery, "delivery", "request", u.url, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrDelivery, "delivery", "post", d.FilePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Wrap(errs.ErrDelivery, "delivery", "post", d.FilePath,
			fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildForm(d artifact.Descriptor) (*bytes.Buffer, string, error) {
	f, err := os.Open(d.FilePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", d.Name())
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", d.FilePath, err)
	}

	fields := []struct{ key, value string }{
		{"name", d.Name()},
		{"camera", d.CameraAlias},
		{"date", d.CaptureDate},
		{"time", d.CaptureTime},
	}
	for _, field := range fields {
		if err := mw.WriteField(field.key, field.value); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// JoinURL concatenates a server URL and an endpoint path with exactly one
// slash between them.
func JoinURL(server, endpoint string) string {
	return strings.TrimRight(server, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

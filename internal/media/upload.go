package media

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
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// TokenSource supplies the bearer token for authenticated upstream calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Uploader pushes local device files to the upstream media endpoint and
// returns the resulting remote reference.
type Uploader struct {
	baseURL  string
	resolver *Resolver
	tokens   TokenSource
	client   *http.Client
}

func NewUploader(baseURL string, resolver *Resolver, tokens TokenSource, client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		resolver: resolver,
		tokens:   tokens,
		client:   client,
	}
}

var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// Upload sends the file behind localURI as a multipart body addressed by
// owner and post. The response carries either a direct URL or a numeric
// media id; a numeric id is expanded through the resolver.
func (u *Uploader) Upload(ctx context.Context, ownerID, postID, localURI string) (string, error) {
	path := strings.TrimPrefix(localURI, "file://")

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	hdr.Set("Content-Type", contentType(path))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/media/%s/%s", u.baseURL, ownerID, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.tokens != nil {
		token, err := u.tokens.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("acquire session: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("media upload failed with status %d", resp.StatusCode)
	}

	var out struct {
		URL string          `json:"url"`
		ID  json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("media upload response: %w", err)
	}
	if out.URL != "" {
		return out.URL, nil
	}
	if len(out.ID) > 0 {
		id := strings.Trim(string(out.ID), `"`)
		if isNumeric(id) {
			return u.resolver.DisplayRef(id), nil
		}
	}
	return "", fmt.Errorf("media upload response missing url and id")
}

// contentType infers the MIME type from the file extension, sniffs the
// content for unknown extensions, and defaults to an octet-stream type.
func contentType(path string) string {
	if ct, ok := extTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		return mt.String()
	}
	return "application/octet-stream"
}

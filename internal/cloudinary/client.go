// Package cloudinary stores student photos with Cloudinary's signed upload API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNotConfigured is returned when no Cloudinary account is set up.
var ErrNotConfigured = errors.New("cloudinary: not configured")

// APIError is an upload rejected by Cloudinary.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return "cloudinary: upload rejected (" + strconv.Itoa(e.Status) + "): " + e.Message
}

// Client uploads images into one folder of one Cloudinary account.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client
	now       func() time.Time
}

// New creates a client. Missing credentials are allowed; Configured reports them.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:   "https://api.cloudinary.com",
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// UploadResult is the subset of the upload response the portal keeps.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// UploadPhoto uploads image bytes under publicID, replacing any earlier
// photo with the same id so a student keeps one stable URL.
func (c *Client) UploadPhoto(ctx context.Context, data []byte, filename, publicID string) (*UploadResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	signed := map[string]string{"timestamp": strconv.FormatInt(c.now().Unix(), 10)}
	if c.Folder != "" {
		signed["folder"] = c.Folder
	}
	if publicID != "" {
		signed["public_id"] = publicID
		signed["overwrite"] = "true"
	}

	body, contentType, err := c.form(signed, filename, data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1_1/"+c.CloudName+"/image/upload", body)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary: build request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(bytes.TrimSpace(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "cloudinary: decode response")
	}
	return &result, nil
}

func (c *Client) form(signed map[string]string, filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range signed {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", errors.Wrap(err, "cloudinary: write form")
		}
	}
	_ = w.WriteField("api_key", c.APIKey)
	_ = w.WriteField("signature", c.sign(signed))
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: write file")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "cloudinary: close form")
	}
	return &buf, w.FormDataContentType(), nil
}

// sign is sha1 over the sorted "k=v" pairs joined by "&", followed by the
// secret. api_key, file and empty values are never signed.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "api_key", "file", "resource_type":
			continue
		}
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}

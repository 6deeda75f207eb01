package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

// HTTPUploadClient implements UploadClient against the chatdocs API.
type HTTPUploadClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewHTTPUploadClient(baseURL, token string) *HTTPUploadClient {
	return &HTTPUploadClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// Upload posts one file as multipart form data. Upload latency includes the
// server's synchronous embedding run.
func (c *HTTPUploadClient) Upload(ctx context.Context, ownerID string, f File) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// CreateFormFile would stamp the part application/octet-stream; the server
	// validates the declared part type, so set it explicitly.
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	hdr.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, err
	}
	if err := mw.WriteField("ownerId", ownerID); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env errorEnvelope
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env); err == nil && env.Error != "" {
			return nil, fmt.Errorf("upload failed: %s", env.Error)
		}
		return nil, fmt.Errorf("upload failed: %s", resp.Status)
	}

	var res UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &res, nil
}

// Delete issues the server-side removal of an uploaded file.
func (c *HTTPUploadClient) Delete(ctx context.Context, fileID, ownerID string) error {
	q := url.Values{"fileId": {fileID}, "ownerId": {ownerID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/files?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete failed: %s", resp.Status)
	}
	return nil
}

var _ UploadClient = (*HTTPUploadClient)(nil)

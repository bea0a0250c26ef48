package detect

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

// HTTPFrameSource fetches the current snapshot for a camera from the
// external capture service. Decoding stops at the JPEG level; anything
// upstream of that is out of scope here.
type HTTPFrameSource struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPFrameSource(url, token string) *HTTPFrameSource {
	return &HTTPFrameSource{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *HTTPFrameSource) Frame(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot fetch: status %d", resp.StatusCode)
	}

	img, err := jpeg.Decode(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("frame decode: %w", err)
	}
	return img, nil
}

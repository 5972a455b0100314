package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/recipe"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// ImageSuffix is appended to the backend URL to reach the image endpoint.
const ImageSuffix = "-image"

type ImageRequest struct {
	Title string `json:"title"`
}

type ImageResponse struct {
	Created int64       `json:"created,omitempty"`
	Data    []ImageData `json:"data"`
}

type ImageData struct {
	URL string `json:"url"`
}

// ImageClient requests one illustrative image per instruction step.
type ImageClient struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewImageClient builds a client for baseURL+ImageSuffix. A zero timeout
// leaves requests bounded only by their context.
func NewImageClient(baseURL string, timeout time.Duration, l logger.Logger) *ImageClient {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &ImageClient{
		endpoint:   baseURL + ImageSuffix,
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
	}
}

func (c *ImageClient) Endpoint() string {
	return c.endpoint
}

// FetchStepImage never fails: every error is logged and reported as an
// absent result.
func (c *ImageClient) FetchStepImage(ctx context.Context, title string) recipe.ImageResult {
	url, err := c.fetch(ctx, title)
	if err != nil {
		c.logger.WithField("title", title).WithField("reason", err.Error()).Warn("step image unavailable")
		return recipe.Absent
	}
	return recipe.Present(url)
}

func (c *ImageClient) fetch(ctx context.Context, title string) (string, error) {
	jsonData, err := json.Marshal(ImageRequest{Title: title})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("image service returned %s", resp.Status)
	}

	var imageResp ImageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(imageResp.Data) == 0 || imageResp.Data[0].URL == "" {
		return "", fmt.Errorf("no image returned")
	}

	return imageResp.Data[0].URL, nil
}

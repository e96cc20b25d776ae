package specsadapter

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// StatusError carries the HTTP status code from a non-2xx/304 response so
// callers can apply spec.md §6's "4xx → fatal; 5xx → retried" rule without
// string-matching the error.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("specs fetch: unexpected status %d", e.StatusCode)
}

// Retryable reports whether the status warrants a retry: 5xx only.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// FetchResult is what NetworkClient.FetchSpecs returns: either a body plus
// has-content, or a not-modified signal (HTTP 304 mapped to NoUpdates per
// spec.md §6).
type FetchResult struct {
	Body        []byte
	NotModified bool
}

// NetworkClient is the narrow HTTP contract spec.md §1 treats as an
// external collaborator: GET the specs endpoint, honoring a conditional
// sinceTime and the constant metadata headers in spec.md §6.
type NetworkClient interface {
	FetchSpecs(ctx context.Context, specsURL, sdkKey string, sinceTime int64) (FetchResult, error)
}

// httpNetworkClient is the default NetworkClient, connection-pooled the
// way emergent.NewClientFactory configures its http.Transport in the
// teacher repo (MaxIdleConnsPerHost, IdleConnTimeout, ForceAttemptHTTP2).
type httpNetworkClient struct {
	httpClient *http.Client
	sdkVersion string
}

// NewHTTPNetworkClient builds the default net/http-backed NetworkClient.
func NewHTTPNetworkClient(sdkVersion string) NetworkClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
	}
	return &httpNetworkClient{
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: transport},
		sdkVersion: sdkVersion,
	}
}

// FetchSpecs issues GET {specsURL}/{sdkKey}.json[?sinceTime=...] with the
// constant metadata headers from spec.md §6. 2xx returns the body; 304
// returns NotModified; 4xx/5xx return an error (the caller decides whether
// to retry a 5xx).
func (c *httpNetworkClient) FetchSpecs(ctx context.Context, specsURL, sdkKey string, sinceTime int64) (FetchResult, error) {
	url := fmt.Sprintf("%s/%s.json", specsURL, sdkKey)
	if sinceTime > 0 {
		url += "?sinceTime=" + strconv.FormatInt(sinceTime, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("statsig-api-key", sdkKey)
	req.Header.Set("statsig-sdk-type", "go-core")
	req.Header.Set("statsig-sdk-version", c.sdkVersion)
	req.Header.Set("statsig-server-time", strconv.FormatInt(time.Now().UnixMilli(), 10))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("specs fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchResult{NotModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchResult{}, &StatusError{StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return FetchResult{}, fmt.Errorf("specs fetch: gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return FetchResult{}, fmt.Errorf("specs fetch: reading body: %w", err)
	}
	return FetchResult{Body: body}, nil
}

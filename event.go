package statsig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/statsig-io/go-core/internal/spectypes"
)

// httpEventsClient is the default eventlogger.EventsClient: POST
// {log_event_url}/log_event with the envelope spec.md §6 documents.
type httpEventsClient struct {
	url        string
	sdkKey     string
	sdkVersion string
	httpClient *http.Client
}

func newHTTPEventsClient(logEventURL, sdkKey, sdkVersion string) *httpEventsClient {
	return &httpEventsClient{
		url:        logEventURL + "/log_event",
		sdkKey:     sdkKey,
		sdkVersion: sdkVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type logEventPayload struct {
	Events          []spectypes.StatsigEvent `json:"events"`
	StatsigMetadata map[string]string        `json:"statsigMetadata"`
}

// PostEvents sanitizes every event's user (private attributes stripped)
// and POSTs the batch, per spec.md §6.
func (c *httpEventsClient) PostEvents(ctx context.Context, events []spectypes.StatsigEvent) error {
	sanitized := make([]spectypes.StatsigEvent, len(events))
	for i, e := range events {
		sanitized[i] = e.Sanitize()
	}

	body, err := json.Marshal(logEventPayload{
		Events: sanitized,
		StatsigMetadata: map[string]string{
			"sdkType":    "go-core",
			"sdkVersion": c.sdkVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("statsig-api-key", c.sdkKey)
	req.Header.Set("statsig-sdk-type", "go-core")
	req.Header.Set("statsig-sdk-version", c.sdkVersion)
	req.Header.Set("statsig-server-time", strconv.FormatInt(time.Now().UnixMilli(), 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("log_event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("log_event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/utils"
)

const wireDateLayout = "2006-01-02"

// TrendsAPIClient calls the upstream interest-over-time endpoint. It is the
// only component performing network I/O for series data.
type TrendsAPIClient struct {
	baseURL    string
	seriesPath string
	httpClient *http.Client
}

// NewTrendsAPIClient constructs a client targeting the configured upstream.
func NewTrendsAPIClient(baseURL, seriesPath string, timeout time.Duration) *TrendsAPIClient {
	return &TrendsAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		seriesPath: seriesPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchInterestOverTime requests one sub-batch of keywords at the given
// granularity. Failures come back as *models.FetchError so callers can
// decide on retries; Attempts is always 1 here.
func (c *TrendsAPIClient) FetchInterestOverTime(ctx context.Context, keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) (*models.RawSeries, error) {
	if c == nil {
		return nil, models.NewFetchError(models.FailureInvalid, 1, fmt.Errorf("trends client not initialised"))
	}
	if c.baseURL == "" {
		return nil, models.NewFetchError(models.FailureInvalid, 1, fmt.Errorf("trends base URL not configured"))
	}
	if len(keywords) == 0 || len(keywords) > 5 {
		return nil, models.NewFetchError(models.FailureInvalid, 1, fmt.Errorf("sub-batch must hold 1-5 keywords, got %d", len(keywords)))
	}

	payload := map[string]interface{}{
		"keywords":    keywords,
		"start":       timeframe.Start.Format(wireDateLayout),
		"end":         timeframe.End.Format(wireDateLayout),
		"geo":         geo,
		"granularity": string(granularity),
	}

	var response struct {
		Series map[string][]struct {
			Date  string  `json:"date"`
			Value float64 `json:"value"`
		} `json:"series"`
	}

	if err := c.postJSON(ctx, c.seriesURL(), payload, &response); err != nil {
		return nil, classify(err)
	}

	raw := &models.RawSeries{
		Keywords:    keywords,
		Granularity: granularity,
		Timeframe:   timeframe,
		Geo:         geo,
		Points:      make(map[string][]models.Sample, len(keywords)),
	}
	for _, kw := range keywords {
		wire := response.Series[kw]
		samples := make([]models.Sample, 0, len(wire))
		for _, point := range wire {
			ts, err := utils.ParseDate(point.Date)
			if err != nil {
				return nil, models.NewFetchError(models.FailureUnknown, 1, fmt.Errorf("keyword %q: %w", kw, err))
			}
			sample := models.Sample{Time: ts, Value: point.Value}
			if point.Value < 0 {
				sample = models.Sample{Time: ts, Missing: true}
			}
			samples = append(samples, sample)
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
		raw.Points[kw] = samples
	}
	return raw, nil
}

func (c *TrendsAPIClient) seriesURL() string { return c.resolvePath(c.seriesPath) }

func (c *TrendsAPIClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// statusError carries a non-200 upstream status through classification.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %s", e.status)
}

func (c *TrendsAPIClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify maps transport and status failures onto the retry taxonomy.
func classify(err error) *models.FetchError {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusTooManyRequests:
			return models.NewFetchError(models.FailureRateLimited, 1, err)
		case se.code == http.StatusBadRequest,
			se.code == http.StatusNotFound,
			se.code == http.StatusUnprocessableEntity:
			return models.NewFetchError(models.FailureInvalid, 1, err)
		default:
			return models.NewFetchError(models.FailureUnknown, 1, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewFetchError(models.FailureTimeout, 1, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewFetchError(models.FailureTimeout, 1, err)
	}
	if errors.Is(err, context.Canceled) {
		return models.NewFetchError(models.FailureUnknown, 1, err)
	}
	return models.NewFetchError(models.FailureUnknown, 1, err)
}

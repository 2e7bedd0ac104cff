package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultTimeout = 10 * time.Second
	userAgent      = "Mozilla/5.0 (compatible; crossover/1.0)"
)

// validSymbol matches symbols like AAPL, BRK-B, TATAMOTORS.NS, 600519.SH, ^GSPC, EURUSD=X
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9\-]{1,15}(=X)?(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Config holds Yahoo source settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Yahoo fetches daily closes from the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo price source. Zero config fields take defaults.
func New(cfg Config) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Yahoo{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches daily closes in [start, end), preferring the
// split and dividend adjusted close.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("includeAdjustedClose", "true")
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	var result chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("yahoo: %s", symbol))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", decodeErr))
	}

	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 {
		return core.PriceSeries{}, nil
	}

	return parseSeries(result.Chart.Result[0]), nil
}

// parseSeries converts one chart result into a daily series, skipping bars
// without a close.
func parseSeries(r chartResult) core.PriceSeries {
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		closes = r.Indicators.Quote[0].Close
	}
	if closes == nil {
		return core.PriceSeries{}
	}

	data := make(core.PriceSeries, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if closes[i] == nil {
			continue // Skip missing data
		}
		// Exchange-local calendar date of the bar
		local := time.Unix(ts+r.Meta.GMTOffset, 0)
		data = append(data, core.PricePoint{
			Date:  collector.NormalizeDate(local),
			Close: *closes[i],
		})
	}

	return collector.SortAndDedupe(data)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	Currency  string `json:"currency"`
	GMTOffset int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote    []quoteIndicator    `json:"quote"`
	AdjClose []adjCloseIndicator `json:"adjclose"`
}

type quoteIndicator struct {
	Close []*float64 `json:"close"`
}

type adjCloseIndicator struct {
	AdjClose []*float64 `json:"adjclose"`
}

package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

var validSymbol = regexp.MustCompile(`^[A-Za-z0-9\^=\-]{1,20}(\.[A-Za-z]{1,4})?$`)

// Source reads daily closes from <dir>/<SYMBOL>.csv. The file needs a header
// row with a Date column and a Close or Adj Close column.
type Source struct {
	dir string
}

// New creates a CSV price source rooted at dir
func New(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) Name() string {
	return "csv"
}

// FetchHistory returns the rows dated in [start, end), sorted by date.
// A zero start or end leaves that side of the range open.
func (s *Source) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	if !validSymbol.MatchString(symbol) {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("invalid symbol format: %s", symbol))
	}

	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no file %s", path))
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("opening CSV %s: %w", path, err))
	}
	defer f.Close()

	series, err := parse(ctx, f)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("reading CSV %s: %w", path, err))
	}

	from, to := collector.NormalizeDate(start), collector.NormalizeDate(end)
	filtered := make(core.PriceSeries, 0, len(series))
	for _, p := range series {
		if !start.IsZero() && p.Date.Before(from) {
			continue
		}
		if !end.IsZero() && !p.Date.Before(to) {
			continue
		}
		filtered = append(filtered, p)
	}

	return collector.SortAndDedupe(filtered), nil
}

func parse(ctx context.Context, r io.Reader) (core.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return core.PriceSeries{}, nil
	}
	if err != nil {
		return nil, err
	}

	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			closeCol = i
		case "close":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header %v needs Date and Close columns", header)
	}

	var series core.PriceSeries
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rawClose := strings.TrimSpace(row[closeCol])
		if rawClose == "" || strings.EqualFold(rawClose, "null") {
			continue // Skip missing data
		}

		date, err := time.Parse(core.DateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(rawClose, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		series = append(series, core.PricePoint{Date: date, Close: closePrice})
	}

	if series == nil {
		series = core.PriceSeries{}
	}
	return series, nil
}

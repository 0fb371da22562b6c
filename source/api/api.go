// JSON market-data API access with token auth and year-windowed history fetch.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"finsync/source"
)

// Client talks to the invest API. The secret token is checked at Authenticate
// and carried on every request as a bearer header.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	// overridable in tests; defaults to time.Now
	Now func() time.Time
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}

func (c *Client) Authenticate(ctx context.Context) (*source.Session, error) {
	if c.Token == "" {
		return nil, &source.AuthError{Reason: "missing API token"}
	}

	return &source.Session{Token: c.Token}, nil
}

func (c *Client) get(ctx context.Context, s *source.Session, path string, query url.Values, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)

	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)

	res, err := c.httpClient().Do(req)

	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return &source.AuthError{Reason: "API rejected token"}
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &source.DecodeError{Name: path, Err: err}
	}

	return nil
}

// SearchInstrument resolves a ticker to the instrument figi.
func (c *Client) SearchInstrument(ctx context.Context, s *source.Session, ticker string) (string, error) {
	var out struct {
		Payload struct {
			Instruments []struct {
				FIGI string `json:"figi"`
			} `json:"instruments"`
		} `json:"payload"`
	}

	q := url.Values{"ticker": {ticker}}
	if err := c.get(ctx, s, "/market/search/by-ticker", q, &out); err != nil {
		return "", err
	}

	if len(out.Payload.Instruments) == 0 {
		return "", &source.StructureError{Marker: "instrument " + ticker}
	}

	return out.Payload.Instruments[0].FIGI, nil
}

type candle struct {
	Open     float64 `json:"o"`
	Close    float64 `json:"c"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Volume   int64   `json:"v"`
	Time     string  `json:"time"`
	Interval string  `json:"interval"`
}

// Window is one request span of a windowed history fetch.
type Window struct {
	From time.Time
	To   time.Time
}

// Windows splits [from, now] into consecutive spans of at most one calendar
// year each, the maximum the candle endpoint accepts.
func Windows(from, now time.Time) []Window {
	var out []Window

	for from.Before(now) {
		to := from.AddDate(1, 0, 0)
		if to.After(now) {
			to = now
		}

		out = append(out, Window{From: from, To: to})
		from = to.AddDate(0, 0, 1)
	}

	return out
}

// CandlesSince fetches day candles for ticker from the given start up to now,
// window by window, and concatenates the results into one sequence.
func (c *Client) CandlesSince(ctx context.Context, s *source.Session, ticker string, from time.Time) ([]source.RawRecord, error) {
	figi, err := c.SearchInstrument(ctx, s, ticker)

	if err != nil {
		return nil, err
	}

	var records []source.RawRecord

	for _, w := range Windows(from, c.now()) {
		var out struct {
			Payload struct {
				Candles []candle `json:"candles"`
			} `json:"payload"`
		}

		q := url.Values{
			"figi":     {figi},
			"from":     {w.From.Format(time.RFC3339)},
			"to":       {w.To.Format(time.RFC3339)},
			"interval": {"day"},
		}

		if err := c.get(ctx, s, "/market/candles", q, &out); err != nil {
			return nil, err
		}

		for _, cd := range out.Payload.Candles {
			records = append(records, source.RawRecord{
				"ticker":   ticker,
				"o":        cd.Open,
				"c":        cd.Close,
				"h":        cd.High,
				"l":        cd.Low,
				"v":        cd.Volume,
				"time":     cd.Time,
				"interval": cd.Interval,
			})
		}
	}

	return records, nil
}

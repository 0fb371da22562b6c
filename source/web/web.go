// Cookie-authenticated site scraping: form login, cookie-threaded requests and
// structural-marker HTML extraction.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"finsync/source"

	"github.com/PuerkitoBio/goquery"
)

// Client logs into a site with a form POST and carries the captured session
// cookies on every later request. Site-specific paths, form fields and markers
// are configuration, not code.
type Client struct {
	BaseURL   string
	LoginPath string
	// credentials and any extra fields the login form expects
	LoginForm url.Values
	// cookie the login response must set; empty means any cookie is accepted
	SessionCookie string
	HTTP          *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	return http.DefaultClient
}

// Authenticate posts the login form without following redirects (a login
// success is usually a redirect) and captures the session cookies from the
// response. A missing expected cookie is an AuthError, not a fetch error.
func (c *Client) Authenticate(ctx context.Context) (*source.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.LoginPath,
		strings.NewReader(c.LoginForm.Encode()))

	if err != nil {
		return nil, &source.AuthError{Reason: "building login request", Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := *c.httpClient()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	res, err := client.Do(req)

	if err != nil {
		return nil, &source.AuthError{Reason: "login request failed", Err: err}
	}

	defer res.Body.Close()

	cookies := map[string]string{}
	for _, ck := range res.Cookies() {
		cookies[ck.Name] = ck.Value
	}

	if c.SessionCookie != "" {
		if _, ok := cookies[c.SessionCookie]; !ok {
			return nil, &source.AuthError{Reason: "login response did not set " + c.SessionCookie}
		}
	} else if len(cookies) == 0 {
		return nil, &source.AuthError{Reason: "login response set no cookies"}
	}

	return &source.Session{Cookies: cookies}, nil
}

func (c *Client) get(ctx context.Context, s *source.Session, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)

	if err != nil {
		return nil, err
	}

	pairs := make([]string, 0, len(s.Cookies))
	for k, v := range s.Cookies {
		pairs = append(pairs, k+"="+v)
	}

	req.Header.Set("Cookie", strings.Join(pairs, ";"))

	res, err := c.httpClient().Do(req)

	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, res.StatusCode)
	}

	return res, nil
}

// GetDocument fetches a page and parses it.
func (c *Client) GetDocument(ctx context.Context, s *source.Session, path string) (*goquery.Document, error) {
	res, err := c.get(ctx, s, path)

	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	doc, err := goquery.NewDocumentFromReader(res.Body)

	if err != nil {
		return nil, &source.DecodeError{Name: path, Err: err}
	}

	return doc, nil
}

// GetJSON fetches a JSON endpoint into out.
func (c *Client) GetJSON(ctx context.Context, s *source.Session, path string, out any) error {
	res, err := c.get(ctx, s, path)

	if err != nil {
		return err
	}

	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &source.DecodeError{Name: path, Err: err}
	}

	return nil
}

var spaces = regexp.MustCompile(`\s+`)

func squash(s string) string {
	return spaces.ReplaceAllString(s, "")
}

// WidgetTable locates the table under the widget header whose title contains
// title, and returns its rows keyed by the header row's cell text (whitespace
// stripped, as the markup pads cells freely). An absent widget or table is a
// StructureError: the page layout changed and partial data must not pass as
// "no data".
func WidgetTable(doc *goquery.Document, title string) ([]source.RawRecord, error) {
	header := doc.Find(".widget-header").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), title)
	})

	if header.Length() == 0 {
		return nil, &source.StructureError{Marker: title}
	}

	rows := header.First().NextFiltered(".widget-text").Find("table tr")

	if rows.Length() == 0 {
		return nil, &source.StructureError{Marker: title}
	}

	var headers []string
	var records []source.RawRecord

	rows.Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td,th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, squash(cell.Text()))
		})

		if headers == nil {
			headers = cells
			return
		}

		rec := source.RawRecord{}
		for i, h := range headers {
			if i < len(cells) {
				rec[h] = cells[i]
			}
		}

		records = append(records, rec)
	})

	return records, nil
}

// LabeledCell returns the trimmed text of the last cell in the first table row
// that has a cell containing label.
func LabeledCell(doc *goquery.Document, label string) (string, error) {
	cell := doc.Find("td").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	}).First()

	if cell.Length() == 0 {
		return "", &source.StructureError{Marker: label}
	}

	return strings.TrimSpace(cell.Parent().Find("td").Last().Text()), nil
}

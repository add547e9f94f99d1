package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// Reader yields the current rows for the monitored addresses.
type Reader interface {
	Read(ctx context.Context) ([]outage.Row, error)
}

var (
	// ErrSourceUnavailable wraps every network, status or parse failure.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoRows is returned by callers that treat an empty snapshot as a failed poll.
	ErrNoRows = errors.New("no monitored rows in the snapshot")
)

const (
	// minColumns is the number of cells a data row must have.
	minColumns = 7
	// maxPageSize caps how much of the page is read.
	maxPageSize = 8 << 20
)

// Column positions in the schedule table.
const (
	columnAddress = 2
	columnType    = 3
	columnStart   = 4
	columnEnd     = 5
	columnStatus  = 6
)

// HTMLReader scrapes the first table of the schedule page.
type HTMLReader struct {
	// url of the schedule page.
	url string
	// userAgent is sent with every request.
	userAgent string
	// addresses are the monitored names matched by substring.
	addresses []string
	// client performs the requests.
	client *http.Client
	// now returns the observation time.
	now func() time.Time
}

// Option configures an HTMLReader.
type Option func(*HTMLReader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *HTMLReader) {
		if client != nil {
			r.client = client
		}
	}
}

// WithClock replaces time.Now for observation timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *HTMLReader) {
		if now != nil {
			r.now = now
		}
	}
}

// NewHTMLReader creates a reader for url filtering rows by the monitored addresses.
func NewHTMLReader(url, userAgent string, addresses []string, timeout time.Duration, opts ...Option) *HTMLReader {
	r := &HTMLReader{
		url:       url,
		userAgent: userAgent,
		addresses: addresses,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Read fetches the page and returns the rows of monitored addresses.
// An empty result without error means the page had no matching rows.
func (r *HTMLReader) Read(ctx context.Context) ([]outage.Row, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrSourceUnavailable, err)
	}

	request.Header.Set("User-Agent", r.userAgent)

	response, err := r.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrSourceUnavailable, response.Status)
	}

	rows, err := r.parse(io.LimitReader(response.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	return rows, nil
}

// parse extracts monitored rows from the first table of the document.
func (r *HTMLReader) parse(body io.Reader) ([]outage.Row, error) {
	document, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := findFirst(document, atom.Table)
	if table == nil {
		return nil, nil
	}

	observedAt := r.now()

	var rows []outage.Row

	for i, tr := range findAll(table, atom.Tr) {
		// The first row is the header.
		if i == 0 {
			continue
		}

		cells := findAll(tr, atom.Td)
		if len(cells) < minColumns {
			continue
		}

		address := cellText(cells[columnAddress])
		if !r.monitored(address) {
			continue
		}

		rows = append(rows, outage.Row{
			Address:        address,
			Category:       cellText(cells[columnType]),
			ScheduledStart: cellText(cells[columnStart]),
			ScheduledEnd:   cellText(cells[columnEnd]),
			Status:         cellText(cells[columnStatus]),
			ObservedAt:     observedAt,
		})
	}

	return rows, nil
}

// monitored reports whether address contains any monitored name.
func (r *HTMLReader) monitored(address string) bool {
	for _, name := range r.addresses {
		if strings.Contains(address, name) {
			return true
		}
	}

	return false
}

// findFirst returns the first element with tag a in depth-first order.
func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, a); found != nil {
			return found
		}
	}

	return nil
}

// findAll returns every element with tag a below n, not descending into matches.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var found []*html.Node

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == a {
			found = append(found, child)

			continue
		}

		found = append(found, findAll(child, a)...)
	}

	return found
}

// cellText returns the collapsed text content of n.
func cellText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteByte(' ')
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

package refrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// DefaultPath selects the first published rate in the feed
const DefaultPath = "//Rate"

// Client reads a benchmark lending rate from an XML feed. The rate is used as
// the default interest rate of a disbursal booked without one.
type Client struct {
	url    string
	path   string
	margin float64
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new reference-rate client. margin is added to the
// published rate, in percentage points.
func NewClient(url string, margin float64, log *logrus.Logger) *Client {
	return &Client{
		url:    url,
		path:   DefaultPath,
		margin: margin,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// WithPath overrides the etree path used to locate rate elements
func (c *Client) WithPath(path string) *Client {
	c.path = path
	return c
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Reference rate XML response: %s", string(body))
	return body, nil
}

func (c *Client) parse(body []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	elements := doc.FindElements(c.path)
	if len(elements) == 0 {
		return 0, fmt.Errorf("no rate found at %s", c.path)
	}

	// feeds publish newest first
	text := strings.TrimSpace(elements[0].Text())
	rate, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate %q: %w", text, err)
	}
	return rate, nil
}

// Rate fetches the current reference rate and adds the configured margin
func (c *Client) Rate(ctx context.Context) (float64, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return 0, err
	}
	rate, err := c.parse(body)
	if err != nil {
		return 0, err
	}
	rate += c.margin

	c.log.Infof("Retrieved reference rate: %.2f%% (including %.2f%% margin)", rate, c.margin)
	return rate, nil
}

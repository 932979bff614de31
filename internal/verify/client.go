// Package verify proxies GSTIN and PAN lookups to the Zoop verification
// provider and reshapes provider payloads into the stable form the UI
// consumes. Results are cached in MySQL for 24 hours per identifier.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// identifier formats, matched after trimming and uppercasing
var (
	gstinRe = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[0-9A-Z]{1}Z[0-9A-Z]{1}$`)
	panRe   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// ValidGSTIN reports whether s is a well-formed GSTIN.
func ValidGSTIN(s string) bool { return gstinRe.MatchString(s) }

// ValidPAN reports whether s is a well-formed PAN.
func ValidPAN(s string) bool { return panRe.MatchString(s) }

const consentText = "I hereby declare my consent agreement for fetching my information via ZOOP API"

// ProviderError carries a non-2xx provider response so the handler can
// bubble the provider's own payload up to the client.
type ProviderError struct {
	StatusCode int
	Info       json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// Options configures the provider client. PAN credentials usually equal the
// GST ones; the provider shares them across products.
type Options struct {
	GSTURL string
	GSTKey string
	GSTApp string
	PANURL string
	PANKey string
	PANApp string
}

// Client calls the provider's synchronous GST and PAN endpoints. Every call
// authenticates with an api-key and app-id header pair.
type Client struct {
	httpc *http.Client
	opts  Options
}

// NewClient builds a provider client. Either URL may be empty, in which case
// the corresponding lookup reports ErrNotConfigured.
func NewClient(opts Options) *Client {
	return &Client{
		httpc: &http.Client{Timeout: 20 * time.Second},
		opts:  opts,
	}
}

// ErrNotConfigured signals missing provider credentials or URL.
var ErrNotConfigured = fmt.Errorf("verification provider not configured")

// FetchGST performs a live GSTIN lookup and returns the raw payload.
func (c *Client) FetchGST(ctx context.Context, gstin string) (json.RawMessage, error) {
	if c.opts.GSTURL == "" || c.opts.GSTKey == "" || c.opts.GSTApp == "" {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"mode": "sync",
		"data": map[string]any{
			"business_gstin_number": gstin,
			"consent":               "Y",
			"consent_text":          consentText,
		},
		"task_id": uuid.NewString(),
	}
	return c.post(ctx, c.opts.GSTURL, c.opts.GSTKey, c.opts.GSTApp, body)
}

// FetchPAN performs a live PAN lookup. holderName is optional and forwarded
// to the provider when present.
func (c *Client) FetchPAN(ctx context.Context, pan, holderName string) (json.RawMessage, error) {
	if c.opts.PANURL == "" || c.opts.PANKey == "" || c.opts.PANApp == "" {
		return nil, ErrNotConfigured
	}
	data := map[string]any{
		"customer_pan_number": pan,
		"consent":             "Y",
		"consent_text":        consentText,
	}
	if holderName != "" {
		data["pan_holder_name"] = holderName
	}
	body := map[string]any{
		"mode":    "sync",
		"data":    data,
		"task_id": uuid.NewString(),
	}
	return c.post(ctx, c.opts.PANURL, c.opts.PANKey, c.opts.PANApp, body)
}

func (c *Client) post(ctx context.Context, url, apiKey, appID string, body any) (json.RawMessage, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", apiKey)
	req.Header.Set("app-id", appID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !providerSuccess(payload) {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Info: payload}
	}
	return payload, nil
}

// providerSuccess rejects 2xx responses whose body says success=false.
func providerSuccess(payload []byte) bool {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Success == nil || *probe.Success
}

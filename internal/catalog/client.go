package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://labs.hackthebox.com/api/v4"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100

	// profileConcurrency caps parallel profile lookups during IP enrichment.
	profileConcurrency = 4
)

// Client talks to the remote catalog service. All operations are unary
// request/response; the bearer credential is attached to every call.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	baseURL    string
	pageSize   int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service base URL (no trailing slash).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller is then
// responsible for attaching credentials to requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimiter sets a custom request rate limiter.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithPageSize sets the per_page value used for list pagination.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// New creates a catalog client authenticating with the given bearer token.
func New(token string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = defaultTimeout

	c := &Client{
		httpClient: hc,
		logger:     slog.Default(),
		baseURL:    defaultBaseURL,
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Limit(5), 5)
	}
	return c
}

// get issues a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// post issues a POST with a JSON body and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindProtocol, Err: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

// do performs one rate-limited request and maps the outcome to the error
// taxonomy. A 2xx response is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Kind: KindProtocol, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Kind: KindProtocol, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	apiErr := &Error{Status: resp.StatusCode, Message: serviceMessage(respBody)}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case http.StatusForbidden:
		apiErr.Kind = KindForbidden
	case http.StatusConflict:
		apiErr.Kind = KindConflict
	default:
		apiErr.Kind = KindProtocol
	}
	c.logger.Debug("catalog request failed",
		"method", method, "url", url, "status", resp.StatusCode, "kind", apiErr.Kind.String())
	return apiErr
}

// serviceMessage extracts the "message" field from an error body, if any.
func serviceMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// ListMachines fetches the full machine collection: the current roster and
// the retired roster, fetched concurrently, with pagination followed on
// each. Active machines missing an IP are enriched from their profile.
func (c *Client) ListMachines(ctx context.Context) ([]Machine, error) {
	var current, retired []Machine

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.listPaginated(gctx, fmt.Sprintf("%s/machine/paginated?per_page=%d", c.baseURL, c.pageSize))
		return err
	})
	g.Go(func() error {
		var err error
		retired, err = c.listPaginated(gctx, fmt.Sprintf("%s/machine/list/retired/paginated?per_page=%d", c.baseURL, c.pageSize))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	machines := append(current, retired...)
	if err := c.fillActiveIPs(ctx, machines); err != nil {
		// Best effort: the list is still usable without the address.
		c.logger.Warn("failed to resolve active machine IP", "error", err)
	}
	return machines, nil
}

// listPaginated fetches one roster, following links.next until exhausted.
func (c *Client) listPaginated(ctx context.Context, url string) ([]Machine, error) {
	var machines []Machine
	for url != "" {
		var page listResponse
		if err := c.get(ctx, url, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			machines = append(machines, m.toMachine())
		}
		url = page.Links.Next
	}
	return machines, nil
}

// fillActiveIPs resolves addresses for active machines that the paginated
// listing reported without one.
func (c *Client) fillActiveIPs(ctx context.Context, machines []Machine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileConcurrency)
	for i := range machines {
		if !machines[i].Active || machines[i].IP != "" {
			continue
		}
		i := i
		g.Go(func() error {
			var resp profileResponse
			url := fmt.Sprintf("%s/machine/profile/%d", c.baseURL, machines[i].ID)
			if err := c.get(gctx, url, &resp); err != nil {
				return err
			}
			machines[i].IP = resp.Info.IP
			return nil
		})
	}
	return g.Wait()
}

// Spawn asks the service to start the given machine. The service enforces
// the one-active-machine rule and answers 409 when another is running.
func (c *Client) Spawn(ctx context.Context, id int64) (*ActiveMachine, error) {
	body := struct {
		MachineID int64 `json:"machine_id"`
	}{MachineID: id}

	var resp spawnResponse
	url := fmt.Sprintf("%s/vm/spawn", c.baseURL)
	if err := c.post(ctx, url, body, &resp); err != nil {
		return nil, err
	}

	info := &ActiveMachine{ID: id, IP: resp.IP}
	if info.IP == "" {
		// Some deployments omit the address from the spawn response; the
		// profile endpoint has it once the machine is up.
		var profile profileResponse
		purl := fmt.Sprintf("%s/machine/profile/%d", c.baseURL, id)
		if err := c.get(ctx, purl, &profile); err == nil {
			info.Name = profile.Info.Name
			info.IP = profile.Info.IP
		}
	}
	return info, nil
}

// SubmitFlag submits a flag for the given machine. An incorrect flag is a
// FlagResult, not an error; only transport/protocol/entitlement failures
// return errors. Blank flags are rejected without a network call.
func (c *Client) SubmitFlag(ctx context.Context, id int64, flag string) (*FlagResult, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return nil, &Error{Kind: KindProtocol, Message: "empty flag"}
	}

	body := struct {
		ID   int64  `json:"id"`
		Flag string `json:"flag"`
	}{ID: id, Flag: flag}

	var resp ownResponse
	url := fmt.Sprintf("%s/machine/own", c.baseURL)
	err := c.post(ctx, url, body, &resp)
	if err != nil {
		var ce *Error
		// The service answers 400 for both wrong and repeated flags; the
		// message disambiguates.
		if errors.As(err, &ce) && ce.Status == http.StatusBadRequest {
			if strings.Contains(strings.ToLower(ce.Message), "already") {
				return &FlagResult{Outcome: FlagAlreadyOwned, Message: ce.Message}, nil
			}
			return &FlagResult{Outcome: FlagIncorrect, Message: ce.Message}, nil
		}
		return nil, err
	}

	return &FlagResult{
		Outcome: FlagAccepted,
		OwnType: resp.OwnType,
		Message: resp.Message,
	}, nil
}

// Ensure Client implements the Service interface.
var _ Service = (*Client)(nil)

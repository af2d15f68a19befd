package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"composer/internal/domain"
	"composer/internal/infra/telemetry"
)

// Options configures the transport.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
	MaxBodyBytes int64
	ManifestsDir string
	Logger       *zap.Logger
}

// Client fetches registries and manifests over HTTP(S) and from the local
// manifests directory.
type Client struct {
	http         *retryablehttp.Client
	userAgent    string
	maxBodyBytes int64
	manifestsDir string
	logger       *zap.Logger
}

type response struct {
	url         *url.URL
	contentType string
	body        []byte
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("fetch")

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = leveledLogger{logger: logger.Sugar()}
	httpClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = opts.RetryWaitMax
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultFetchTimeoutSeconds * time.Second
	}
	httpClient.HTTPClient.Timeout = timeout

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = domain.DefaultFetchMaxBodyBytes
	}

	return &Client{
		http:         httpClient,
		userAgent:    userAgent,
		maxBodyBytes: maxBody,
		manifestsDir: opts.ManifestsDir,
		logger:       logger,
	}
}

// FetchRegistry fetches a registry document. HTML pages are followed to the
// alternate document they advertise.
func (c *Client) FetchRegistry(ctx context.Context, locator string) (domain.RegistryPayload, error) {
	const op = "fetch registry"

	target, err := parseRemote(locator)
	if err != nil {
		return domain.RegistryPayload{}, fail(op, err)
	}
	res, err := c.get(ctx, target)
	if err != nil {
		return domain.RegistryPayload{}, fail(op, err)
	}
	raw, handled, err := documentJSON(res)
	if err != nil {
		return domain.RegistryPayload{}, fail(op, err)
	}
	if !handled {
		raw, err = c.followAlternate(ctx, res)
		if err != nil {
			return domain.RegistryPayload{}, fail(op, err)
		}
	}
	payload, err := decodeDocument[domain.RegistryPayload](documentRegistry, raw)
	if err != nil {
		return domain.RegistryPayload{}, fail(op, err)
	}
	return payload, nil
}

// FetchManifest fetches a single manifest. manifest_url is set to the
// locator when the document does not carry one.
func (c *Client) FetchManifest(ctx context.Context, locator string) (domain.ContentEntry, error) {
	const op = "fetch manifest"

	target, err := url.Parse(locator)
	if err != nil {
		return domain.ContentEntry{}, fail(op, fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err))
	}

	var entry domain.ContentEntry
	if target.Scheme == domain.LocalManifestScheme {
		entry, err = readLocalManifest(c.manifestsDir, target)
		if err != nil {
			return domain.ContentEntry{}, fail(op, err)
		}
	} else {
		if err := checkRemote(target); err != nil {
			return domain.ContentEntry{}, fail(op, err)
		}
		res, err := c.get(ctx, target)
		if err != nil {
			return domain.ContentEntry{}, fail(op, err)
		}
		raw, handled, err := documentJSON(res)
		if err != nil {
			return domain.ContentEntry{}, fail(op, err)
		}
		if !handled {
			return domain.ContentEntry{}, fail(op, unexpectedContent(res))
		}
		entry, err = decodeDocument[domain.ContentEntry](documentManifest, raw)
		if err != nil {
			return domain.ContentEntry{}, fail(op, err)
		}
	}

	if entry.ManifestURL() == "" {
		entry = entry.WithManifestURL(locator)
	}
	return entry, nil
}

func (c *Client) followAlternate(ctx context.Context, res response) ([]byte, error) {
	if !isHTML(res.contentType) {
		return nil, unexpectedContent(res)
	}
	alternate, ok := findAlternate(res.url, res.body)
	if !ok {
		return nil, unexpectedContent(res)
	}
	if err := checkRemote(alternate); err != nil {
		return nil, err
	}
	c.logger.Debug("following alternate document",
		telemetry.LocatorField(res.url.String()),
		zap.String("alternate", alternate.String()),
	)

	next, err := c.get(ctx, alternate)
	if err != nil {
		return nil, err
	}
	raw, handled, err := documentJSON(next)
	if err != nil {
		return nil, err
	}
	if !handled {
		return nil, unexpectedContent(next)
	}
	return raw, nil
}

func (c *Client) get(ctx context.Context, target *url.URL) (response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return response{}, fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, text/plain;q=0.9, text/html;q=0.8")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", domain.ErrSourceFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return response{}, fmt.Errorf("%w: %s: unexpected status %d", domain.ErrSourceFetchFailed, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return response{}, fmt.Errorf("%w: read body: %w", domain.ErrSourceFetchFailed, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return response{}, fmt.Errorf("%w: %s: body exceeds %d bytes", domain.ErrInvalidPayload, target, c.maxBodyBytes)
	}

	c.logger.Debug("fetched document",
		telemetry.LocatorField(target.String()),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(body)),
		telemetry.DurationField(time.Since(started)),
	)

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return response{url: final, contentType: resp.Header.Get("Content-Type"), body: body}, nil
}

// documentJSON converts a JSON or YAML response to JSON. handled is false
// when the media type is not a document type.
func documentJSON(res response) ([]byte, bool, error) {
	format, sniff, ok := formatFromContentType(res.contentType)
	if !ok {
		return nil, false, nil
	}
	if sniff {
		raw, err := sniffJSON(res.body)
		return raw, true, err
	}
	raw, err := toJSON(format, res.body)
	return raw, true, err
}

func parseRemote(locator string) (*url.URL, error) {
	target, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err)
	}
	if err := checkRemote(target); err != nil {
		return nil, err
	}
	return target, nil
}

func checkRemote(target *url.URL) error {
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return fmt.Errorf("%w: %s", domain.ErrInvalidLocator, target)
	}
	return nil
}

func unexpectedContent(res response) error {
	contentType := res.contentType
	if contentType == "" {
		contentType = "none"
	}
	return fmt.Errorf("%w: %s: unexpected content type %s", domain.ErrInvalidPayload, res.url, contentType)
}

func fail(op string, err error) error {
	code, ok := domain.CodeFrom(err)
	if !ok {
		code = domain.CodeUnavailable
	}
	return domain.Wrap(code, op, err)
}

// leveledLogger adapts zap to the retryablehttp logger interface.
type leveledLogger struct {
	logger *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}

var _ domain.SourceFetcher = (*Client)(nil)

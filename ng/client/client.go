// Package client talks to the target platform's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/internal/httpclient"
	"github.com/teranos/ngmigrate/logger"
	"github.com/teranos/ngmigrate/ng"
	"github.com/teranos/ngmigrate/version"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

var collections = map[ng.EntityType]string{
	ng.Service:         "services",
	ng.Environment:     "environments",
	ng.Infrastructure:  "infrastructures",
	ng.ServiceOverride: "serviceOverrides",
	ng.Pipeline:        "pipelines",
	ng.Template:        "templates",
	ng.Secret:          "secrets",
	ng.File:            "files",
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration // per HTTP request, 0 = none
	RequestsPerSecond float64       // 0 = unlimited
	Burst             int
	BlockPrivateIPs   bool
	MaxRedirects      *int
}

// Client is an ng.Client over HTTP.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *httpclient.SaferClient
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// New validates cfg and builds a client.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = logger.Logger
	}
	hc := httpclient.NewSaferClientWithOptions(cfg.Timeout, httpclient.SaferClientOptions{
		MaxRedirects:   cfg.MaxRedirects,
		BlockPrivateIP: &cfg.BlockPrivateIPs,
	})
	base, err := hc.ValidateURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid target base URL %q", cfg.BaseURL)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		base:    base,
		apiKey:  cfg.APIKey,
		http:    hc,
		limiter: limiter,
		logger:  log.Named("ng.client"),
	}, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) endpoint(scope ng.Scope, parts ...string) string {
	u := *c.base
	u.Path = strings.Join(append([]string{u.Path, "v1"}, parts...), "/")

	q := url.Values{}
	if scope.AccountID != "" {
		q.Set("accountIdentifier", scope.AccountID)
	}
	if scope.OrgID != "" {
		q.Set("orgIdentifier", scope.OrgID)
	}
	if scope.ProjectID != "" {
		q.Set("projectIdentifier", scope.ProjectID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func collection(t ng.EntityType) (string, error) {
	c, ok := collections[t]
	if !ok {
		return "", errors.NewInvalidRequestError("no endpoint for target type %q", t)
	}
	return c, nil
}

// do sends one request and decodes the envelope. Non-2xx becomes *ng.StatusError.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) (int, *envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, errors.Wrap(err, "rate limiter")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.Get().UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, errors.Wrapf(errors.ErrTimeout, "%s %s: %v", method, req.URL.Path, err)
		}
		return 0, nil, errors.Wrapf(err, "%s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read response")
	}

	c.logger.Debugw("Target request",
		"method", method,
		"path", req.URL.Path,
		logger.FieldStatusCode, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	var env envelope
	if len(raw) > 0 {
		if jerr := json.Unmarshal(raw, &env); jerr != nil && resp.StatusCode < 300 {
			return resp.StatusCode, nil, errors.Wrap(jerr, "decode response")
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return resp.StatusCode, &env, &ng.StatusError{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
	}
	return resp.StatusCode, &env, nil
}

// CreateOrUpdate posts the document YAML to the collection of doc.Type.
func (c *Client) CreateOrUpdate(ctx context.Context, scope ng.Scope, doc ng.Document) (string, error) {
	coll, err := collection(doc.Type)
	if err != nil {
		return "", err
	}
	_, env, err := c.do(ctx, http.MethodPost, c.endpoint(scope, coll), "application/yaml", doc.YAML)
	if err != nil {
		return "", errors.Wrapf(err, "import %s %s", doc.Type, doc.Identifier)
	}

	var data struct {
		Identifier string `json:"identifier"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", errors.Wrapf(err, "decode %s import response", doc.Type)
		}
	}
	if data.Identifier == "" {
		data.Identifier = doc.Identifier
	}
	return data.Identifier, nil
}

// Get fetches the YAML of one resource. A 404 or a response without YAML
// yields nil, nil.
func (c *Client) Get(ctx context.Context, t ng.EntityType, scope ng.Scope, id string) ([]byte, error) {
	coll, err := collection(t)
	if err != nil {
		return nil, err
	}
	status, env, err := c.do(ctx, http.MethodGet, c.endpoint(scope, coll, id), "", nil)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", t, id)
	}

	var data struct {
		YAML string `json:"yaml"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errors.Wrapf(err, "decode %s %s", t, id)
		}
	}
	if data.YAML == "" {
		return nil, nil
	}
	return []byte(data.YAML), nil
}

// CheckVersion fails unless the target reports a version satisfying constraint.
func (c *Client) CheckVersion(ctx context.Context, constraint string) (string, error) {
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", errors.Wrapf(err, "invalid version constraint %q", constraint)
	}

	_, env, err := c.do(ctx, http.MethodGet, c.endpoint(ng.Scope{}, "version"), "", nil)
	if err != nil {
		return "", errors.Wrap(err, "query target version")
	}
	var data struct {
		Version string `json:"version"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", errors.Wrap(err, "decode target version")
		}
	}

	got, err := semver.NewVersion(data.Version)
	if err != nil {
		return data.Version, errors.Wrapf(err, "target reported invalid version %q", data.Version)
	}
	if !want.Check(got) {
		return data.Version, errors.WithHint(
			errors.Newf("target version %s does not satisfy %s", got, constraint),
			"set target.api_version to a constraint the target meets",
		)
	}
	return data.Version, nil
}

var _ ng.Client = (*Client)(nil)

// Package portalapi is the HTTP client of the portal API.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

const defaultTimeout = 30 * time.Second

var nowFunc = time.Now // mockable

// Session is the identity the client authenticates with and updates after a login or a refresh.
type Session interface {
	Token() string
	RefreshToken() string
	Login(ctx context.Context, token, refresh string, usr *user.User) error
	SetTokens(ctx context.Context, token, refresh, role string) error
	Logout(ctx context.Context) error
}

type Options struct {
	HTTPClient *http.Client // overrides Timeout
	Timeout    time.Duration
	// RefreshSkew makes EnsureFresh refresh tokens expiring within this window.
	RefreshSkew time.Duration
	Logger      core.Logger
}

type Client struct {
	baseURL *url.URL
	sess    Session
	http    *http.Client
	skew    time.Duration
	logger  core.Logger
}

// New returns a client of the API at baseURL authenticating with sess.
func New(baseURL string, sess Session, opts *Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if opts == nil {
		opts = &Options{}
	}
	c := &Client{
		baseURL: u,
		sess:    sess,
		http:    opts.HTTPClient,
		skew:    opts.RefreshSkew,
		logger:  opts.Logger,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = core.NopLogger{}
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string            // from the "message" or "error" key of the body
	Fields  map[string]string // field errors, when the body is a field/message mapping
	Body    []byte
}

func newError(status int, body []byte) *Error {
	apiErr := &Error{Status: status, Body: body}
	if !gjson.ValidBytes(body) {
		return apiErr
	}
	res := gjson.ParseBytes(body)
	for _, key := range []string{"message", "error"} {
		if v := res.Get(key); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			apiErr.Message = strings.TrimSpace(v.String())
			return apiErr
		}
	}
	if res.IsObject() {
		res.ForEach(func(k, v gjson.Result) bool {
			if v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
				if apiErr.Fields == nil {
					apiErr.Fields = make(map[string]string)
				}
				apiErr.Fields[k.String()] = v.String()
			}
			return true
		})
	}
	return apiErr
}

func (e *Error) Error() string {
	if msg := e.UserMessage(); msg != "" {
		return msg
	}
	return fmt.Sprintf("portal api: %d %s", e.Status, http.StatusText(e.Status))
}

// UserMessage is the message the API gave for the end user, if any.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// StatusCode returns the HTTP status of err when it is (or wraps) an *Error, 0 otherwise.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// do sends the request and decodes a JSON response into out, when out is not nil.
// The bearer token is attached whenever the session holds one.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	u, err := c.baseURL.Parse(c.baseURL.Path + path)
	if err != nil {
		return errors.Wrap(err, "building url")
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.sess != nil {
		if token := c.sess.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug(fmt.Sprintf("portalapi: %s %s", method, path))
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

// unwrap returns the value under key when data is an object holding it, data otherwise.
func unwrap(data json.RawMessage, key string) json.RawMessage {
	if v := gjson.GetBytes(data, key); v.Exists() && (v.IsObject() || v.IsArray()) {
		return json.RawMessage(v.Raw)
	}
	return data
}

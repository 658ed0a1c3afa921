// Package apiclient is the portal's single HTTP dispatcher for the REST
// backend. It attaches the session's bearer token and refreshes it exactly
// once when a request comes back 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/lgcert/indigene-certificate/logger"
)

const DefaultRefreshPath = "/auth/refresh/"

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  *http.Client
	RefreshPath string
	// OnAuthFailure runs after an unrecoverable 401 cleared the session,
	// typically sending the user back to login.
	OnAuthFailure func()
	Log           *logger.Logger
}

type Client struct {
	baseURL       string
	httpClient    *http.Client
	session       *Session
	refreshPath   string
	onAuthFailure func()
	refreshGroup  singleflight.Group
	log           *logger.Logger
}

func New(session *Session, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:    httpClient,
		session:       session,
		refreshPath:   refreshPath,
		onAuthFailure: opts.OnAuthFailure,
		log:           log,
	}
}

func (c *Client) Session() *Session { return c.session }

// FilePart is one file in a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

type Multipart struct {
	Fields [][2]string
	Files  []FilePart
}

func (m *Multipart) Add(name, value string) {
	m.Fields = append(m.Fields, [2]string{name, value})
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is marshalled as the body. Ignored when Form is set.
	JSON interface{}
	Form *Multipart
	// Anonymous requests carry no token and never trigger a refresh.
	Anonymous bool
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type encoded struct {
	body        []byte
	contentType string
}

func encode(req Request) (encoded, error) {
	if req.Form != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range req.Form.Fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return encoded{}, err
			}
		}
		for _, f := range req.Form.Files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
			ct := f.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)
			part, err := w.CreatePart(h)
			if err != nil {
				return encoded{}, err
			}
			if _, err := part.Write(f.Data); err != nil {
				return encoded{}, err
			}
		}
		if err := w.Close(); err != nil {
			return encoded{}, err
		}
		return encoded{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
	}
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return encoded{}, fmt.Errorf("encode request: %w", err)
		}
		return encoded{body: b, contentType: "application/json"}, nil
	}
	return encoded{}, nil
}

func (c *Client) url(req Request) string {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, req Request, body encoded, token string) (*Response, error) {
	var reader io.Reader
	if body.body != nil {
		reader = bytes.NewReader(body.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), reader)
	if err != nil {
		return nil, err
	}
	if body.contentType != "" {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	if req.Form == nil {
		httpReq.Header.Set("Accept", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// Do sends req. Any status >= 400 comes back as an *APIError. The first 401
// of an authenticated request triggers one refresh and one replay; a second
// 401 ends the session.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := encode(req)
	if err != nil {
		return nil, err
	}

	token := ""
	if !req.Anonymous {
		token = c.session.AccessToken()
	}
	resp, err := c.send(ctx, req, body, token)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && !req.Anonymous {
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			if !refreshRejected(err) {
				return nil, err
			}
			c.expire()
			return nil, sessionExpired(err)
		}
		resp, err = c.send(ctx, req, body, fresh)
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusUnauthorized {
			c.expire()
			return nil, sessionExpired(nil)
		}
	}

	if resp.Status >= 400 {
		apiErr := MapError(resp.Status, resp.Body)
		if req.Anonymous && resp.Status == http.StatusUnauthorized {
			apiErr.Category = CategoryInvalidCredentials
			apiErr.Message = defaultMessages[CategoryInvalidCredentials]
		}
		return nil, apiErr
	}
	return resp, nil
}

// JSON sends req and decodes the response body into out when out is non-nil.
func (c *Client) JSON(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{Status: resp.Status, Category: CategoryServer, Message: defaultMessages[CategoryServer], Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Bytes returns the raw body, for binary downloads.
func (c *Client) Bytes(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

var errNoRefreshToken = errors.New("no refresh token")

// refreshRejected reports whether the backend refused the refresh token.
// Only then is the session over; transport failures leave it intact.
func refreshRejected(err error) bool {
	if errors.Is(err, errNoRefreshToken) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// refresh exchanges the refresh token for a new access token. Concurrent
// callers share one round trip that outlives any single caller's context;
// a caller whose stale token was already replaced gets the current one
// without another call.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if current := c.session.AccessToken(); current != "" && current != stale {
		return current, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		ctx := shared
		if current := c.session.AccessToken(); current != "" && current != stale {
			return current, nil
		}
		rt := c.session.RefreshToken()
		if rt == "" {
			return "", errNoRefreshToken
		}
		req := Request{
			Method:    http.MethodPost,
			Path:      c.refreshPath,
			JSON:      map[string]string{"refreshToken": rt},
			Anonymous: true,
		}
		body, err := encode(req)
		if err != nil {
			return "", err
		}
		resp, err := c.send(ctx, req, body, "")
		if err != nil {
			return "", err
		}
		if resp.Status != http.StatusOK {
			return "", MapError(resp.Status, resp.Body)
		}
		token := firstString(resp.Body, "accessToken", "access", "data.accessToken")
		if token == "" {
			return "", NewError(CategoryServer, errors.New("refresh response carried no access token"))
		}
		if err := c.session.SetAccessToken(token); err != nil {
			return "", err
		}
		return token, nil
	})
	select {
	case <-ctx.Done():
		return "", networkError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) expire() {
	if err := c.session.Clear(); err != nil {
		c.log.Warnf("clear session: %v", err)
	}
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

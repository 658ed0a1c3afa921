package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/lgcert/indigene-certificate/internal/apperr"
)

// HTTPRegistry queries a remote NIN registry at GET <base>/nin/<nin>.
type HTTPRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPRegistry(baseURL, apiKey string, perSecond float64) *HTTPRegistry {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &HTTPRegistry{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

func (r *HTTPRegistry) Lookup(ctx context.Context, nin string) (*Identity, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/nin/"+nin, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nin registry: %v: %w", err, apperr.ErrUnavailable)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("nin registry: %v: %w", err, apperr.ErrUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("nin %s: %w", nin, apperr.ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("nin registry returned %d: %w", resp.StatusCode, apperr.ErrUnavailable)
	}
	return parseIdentity(nin, body)
}

// parseIdentity accepts both {"data": {...}} and bare record bodies with
// snake_case or lower-case keys.
func parseIdentity(nin string, body []byte) (*Identity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("nin registry: malformed response: %w", apperr.ErrUnavailable)
	}
	rec := gjson.GetBytes(body, "data")
	if !rec.Exists() {
		rec = gjson.ParseBytes(body)
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := rec.Get(k); v.Exists() {
				return strings.TrimSpace(v.String())
			}
		}
		return ""
	}

	id := &Identity{
		NIN:         pick("nin"),
		FirstName:   pick("first_name", "firstname"),
		MiddleName:  pick("middle_name", "middlename"),
		LastName:    pick("last_name", "surname", "lastname"),
		DateOfBirth: pick("date_of_birth", "birthdate"),
		Gender:      pick("gender"),
		State:       pick("state_of_origin", "state"),
	}
	if id.NIN == "" {
		id.NIN = nin
	}
	if id.FirstName == "" && id.LastName == "" {
		return nil, fmt.Errorf("nin %s: %w", nin, apperr.ErrNotFound)
	}
	return id, nil
}

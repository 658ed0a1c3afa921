package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	refreshCalls atomic.Int32
	// validToken is the access token the protected endpoint accepts.
	validToken   atomic.Value
	refreshFails bool
	// refreshStatus, when set, is returned by the refresh endpoint instead.
	refreshStatus int
	// refreshGate, when set, holds the refresh response until closed.
	refreshGate  chan struct{}
	alwaysReject bool
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if f.refreshGate != nil {
			<-f.refreshGate
		}
		if f.refreshStatus != 0 {
			w.WriteHeader(f.refreshStatus)
			_, _ = w.Write([]byte(`{"error":"try later"}`))
			return
		}
		if f.refreshFails || body.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid refresh token"}`))
			return
		}
		f.validToken.Store("access-2")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accessToken":"access-2"}`))
	})
	mux.HandleFunc("/applications/my", func(w http.ResponseWriter, r *http.Request) {
		want, _ := f.validToken.Load().(string)
		if f.alwaysReject || r.Header.Get("Authorization") != "Bearer "+want {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})
	mux.HandleFunc("/applications", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content_type": r.Header.Get("Content-Type"),
			"full_name":    r.FormValue("full_name"),
			"filename":     hdr.Filename,
			"size":         len(data),
		})
	})
	mux.HandleFunc("/invalid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","errors":{"nin":["NIN must be exactly 11 digits"]}}`))
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeBackend) (*Client, *Session, *atomic.Int32) {
	t.Helper()
	f.validToken.Store("access-1")
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	session, err := NewSession(nil)
	require.NoError(t, err)
	require.NoError(t, session.Start("access-1", "refresh-1", &User{ID: 7, Role: "applicant"}))

	var failures atomic.Int32
	client := New(session, Options{
		BaseURL:       srv.URL,
		OnAuthFailure: func() { failures.Add(1) },
	})
	return client, session, &failures
}

func TestDoAttachesBearerToken(t *testing.T) {
	f := &fakeBackend{}
	client, _, _ := newTestClient(t, f)

	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Zero(t, f.refreshCalls.Load())
}

func TestRefreshOnceAndReplay(t *testing.T) {
	f := &fakeBackend{}
	client, session, failures := newTestClient(t, f)
	f.validToken.Store("access-2")

	var out []map[string]int
	err := client.JSON(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"}, &out)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, "access-2", session.AccessToken())
	assert.Equal(t, "refresh-1", session.RefreshToken())
	assert.Zero(t, failures.Load())
}

func TestRefreshFailureClearsSession(t *testing.T) {
	f := &fakeBackend{refreshFails: true}
	client, session, failures := newTestClient(t, f)
	f.validToken.Store("access-2")

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategorySessionExpired))
	assert.False(t, session.Authenticated())
	assert.Empty(t, session.RefreshToken())
	assert.Nil(t, session.User())
	assert.Equal(t, int32(1), failures.Load())
}

func TestRefreshServerErrorKeepsSession(t *testing.T) {
	f := &fakeBackend{refreshStatus: http.StatusServiceUnavailable}
	client, session, failures := newTestClient(t, f)
	f.validToken.Store("access-2")

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryServer))
	assert.True(t, session.Authenticated())
	assert.Equal(t, "refresh-1", session.RefreshToken())
	assert.Zero(t, failures.Load())
}

func TestCancelledRefreshKeepsSession(t *testing.T) {
	f := &fakeBackend{refreshGate: make(chan struct{})}
	client, session, failures := newTestClient(t, f)
	f.validToken.Store("access-2")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Do(ctx, Request{Method: http.MethodGet, Path: "/applications/my"})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryNetwork))
	assert.True(t, session.Authenticated())
	assert.Zero(t, failures.Load())

	// the shared refresh still completes for later callers
	close(f.refreshGate)
	require.Eventually(t, func() bool { return session.AccessToken() == "access-2" }, 2*time.Second, 5*time.Millisecond)
	_, err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
	require.NoError(t, err)
}

func TestSecondUnauthorizedIsTerminal(t *testing.T) {
	f := &fakeBackend{alwaysReject: true}
	client, session, failures := newTestClient(t, f)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategorySessionExpired))
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.False(t, session.Authenticated())
	assert.Equal(t, int32(1), failures.Load())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := &fakeBackend{}
	client, _, _ := newTestClient(t, f)
	f.validToken.Store("access-2")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/applications/my"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestMultipartCarriesBoundary(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeBackend{})

	form := &Multipart{}
	form.Add("full_name", "Ada Obi")
	form.Files = append(form.Files, FilePart{Field: "photo", Filename: "me.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")})

	var out struct {
		ContentType string `json:"content_type"`
		FullName    string `json:"full_name"`
		Filename    string `json:"filename"`
		Size        int    `json:"size"`
	}
	err := client.JSON(context.Background(), Request{Method: http.MethodPost, Path: "/applications", Form: form}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ContentType, "multipart/form-data; boundary="))
	assert.Equal(t, "Ada Obi", out.FullName)
	assert.Equal(t, "me.jpg", out.Filename)
	assert.Equal(t, len("jpeg-bytes"), out.Size)
}

func TestValidationErrorIsFlattened(t *testing.T) {
	client, _, _ := newTestClient(t, &fakeBackend{})

	_, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/invalid", JSON: map[string]string{"nin": "1"}})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryValidation))
	assert.Equal(t, "nin: NIN must be exactly 11 digits", err.Error())
}

func TestAnonymousUnauthorizedIsInvalidCredentials(t *testing.T) {
	f := &fakeBackend{}
	client, session, failures := newTestClient(t, f)

	_, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/login", JSON: map[string]string{}, Anonymous: true})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryInvalidCredentials))
	assert.Zero(t, f.refreshCalls.Load())
	assert.True(t, session.Authenticated())
	assert.Zero(t, failures.Load())
}

func TestTransportFailureIsNetwork(t *testing.T) {
	session, err := NewSession(nil)
	require.NoError(t, err)
	client := New(session, Options{BaseURL: "http://127.0.0.1:1"})

	_, err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryNetwork))
	assert.Equal(t, defaultMessages[CategoryNetwork], err.Error())
}

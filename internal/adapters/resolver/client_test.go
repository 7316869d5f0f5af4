package resolver_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/internal/adapters/resolver"
	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts ...resolver.Option) *resolver.Client {
	return resolver.New(append([]resolver.Option{resolver.WithRateLimit(0, 0)}, opts...)...)
}

func TestDo_SkipsNotFoundAndFailuresUntilSuccess(t *testing.T) {
	var hitsD int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			w.WriteHeader(http.StatusNotFound)
		case "/b":
			w.WriteHeader(http.StatusInternalServerError)
		case "/c":
			w.Write([]byte(`{"ok":true,"source":"c"}`))
		default:
			atomic.AddInt32(&hitsD, 1)
			w.Write([]byte(`{"source":"d"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient()
	resp, err := c.Do(context.Background(), resolver.Request{
		URLs: []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c", srv.URL + "/d"},
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/c", resp.URL)

	v, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, "c", v.(map[string]any)["source"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&hitsD))
	assert.Empty(t, c.LastError())
}

func TestDo_ExhaustedListsEveryAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient()
	_, err := c.Do(context.Background(), resolver.Request{
		URLs: []string{srv.URL + "/a", srv.URL + "/b"},
	})
	require.Error(t, err)

	var exhausted *domain.EndpointExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, exhausted.Attempted)
	assert.Contains(t, err.Error(), srv.URL+"/a")
	assert.Contains(t, err.Error(), srv.URL+"/b")
	assert.Equal(t, err.Error(), c.LastError())
}

func TestDo_ExhaustedPrefersInformativeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/b" {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	_, err := newTestClient().Do(context.Background(), resolver.Request{
		URLs: []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"},
	})

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestDo_ExtraSkipStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/private" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient().Do(context.Background(), resolver.Request{
		URLs:       []string{srv.URL + "/private", srv.URL + "/gone"},
		SkipStatus: []int{http.StatusUnauthorized},
	})

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	// 401 counts as "wrong endpoint", so the last skip is reported.
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
}

func TestDo_NoCandidates(t *testing.T) {
	_, err := newTestClient().Do(context.Background(), resolver.Request{})
	var cfgErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestDo_CancelledContextIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Do(ctx, resolver.Request{URLs: []string{srv.URL + "/a"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingObserver struct{ ok, skip, fail int }

func (o *countingObserver) ObserveAttempt(outcome string) {
	switch outcome {
	case resolver.OutcomeOK:
		o.ok++
	case resolver.OutcomeSkip:
		o.skip++
	case resolver.OutcomeFail:
		o.fail++
	}
}

func TestDo_ReportsAttemptsToObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			w.WriteHeader(http.StatusNotFound)
		case "/b":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	obs := &countingObserver{}
	_, err := newTestClient(resolver.WithObserver(obs)).Do(context.Background(), resolver.Request{
		URLs: []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, obs.ok)
	assert.Equal(t, 1, obs.skip)
	assert.Equal(t, 1, obs.fail)
}

func TestDo_SignsWithFreshHeadersAndBody(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	creds := resolver.Credentials{APIKey: "key-123", Secret: secret, Passphrase: "pass"}
	signer, err := resolver.NewSigner(creds, "0xABC")
	require.NoError(t, err)

	fixed := time.Unix(1700000000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mac := hmac.New(sha256.New, []byte("super-secret-key"))
		mac.Write([]byte("1700000000" + "POST" + "/orders?x=1" + string(body)))
		want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		assert.Equal(t, want, r.Header.Get("POLY_SIGNATURE"))
		assert.Equal(t, want, r.Header.Get("X-API-SIGNATURE"))
		assert.Equal(t, "key-123", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "key-123", r.Header.Get("POLY_API_KEY"))
		assert.Equal(t, "pass", r.Header.Get("POLY_PASSPHRASE"))
		assert.Equal(t, "1700000000", r.Header.Get("X-API-TIMESTAMP"))
		assert.Equal(t, "0xABC", r.Header.Get("POLY_ADDRESS"))
		assert.JSONEq(t, `{"a":1,"b":"x"}`, string(body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(resolver.WithClock(func() time.Time { return fixed }))
	_, err = c.Do(context.Background(), resolver.Request{
		Method: http.MethodPost,
		URLs:   []string{srv.URL + "/orders?x=1"},
		Body:   map[string]any{"b": "x", "a": 1},
		Signer: signer,
	})
	require.NoError(t, err)
}

func TestResponseJSON_KeepsNumbers(t *testing.T) {
	v, err := resolver.Response{URL: "u", Body: []byte(`{"p":0.1234567890123}`)}.JSON()
	require.NoError(t, err)
	assert.Equal(t, "0.1234567890123", v.(map[string]any)["p"].(interface{ String() string }).String())

	_, err = resolver.Response{URL: "u", Body: []byte("  ")}.JSON()
	var shapeErr *domain.PayloadShapeError
	assert.True(t, errors.As(err, &shapeErr))
}

func TestDo_ValidateRejectsEmptyAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()

	notEmpty := func(r resolver.Response) error {
		if string(r.Body) == "[]" {
			return errors.New("empty list")
		}
		return nil
	}
	resp, err := newTestClient().Do(context.Background(), resolver.Request{
		URLs:     []string{srv.URL + "/empty", srv.URL + "/full"},
		Validate: notEmpty,
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/full", resp.URL)

	_, err = newTestClient().Do(context.Background(), resolver.Request{
		URLs:     []string{srv.URL + "/empty"},
		Validate: notEmpty,
	})
	assert.ErrorContains(t, err, "empty list")
}

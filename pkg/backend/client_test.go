package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	target string
	err    error
}

type fakeRecorder struct {
	calls []recordedRequest
}

func (r *fakeRecorder) ObserveRequest(target string, _ time.Time, err error) {
	r.calls = append(r.calls, recordedRequest{target: target, err: err})
}

func TestParamsValues(t *testing.T) {
	v := Params{
		Target:            "hits",
		Query:             "inf*",
		Hits:              7,
		Completions:       10,
		FirstHit:          14,
		HitRanking:        "0d",
		CompletionRanking: "1d",
		ExcerptRadius:     20,
	}.Values()

	assert.Equal(t, "inf*", v.Get("q"))
	assert.Equal(t, "7", v.Get("h"))
	assert.Equal(t, "10", v.Get("c"))
	assert.Equal(t, "14", v.Get("f"))
	assert.Equal(t, "0d", v.Get("rd"))
	assert.Equal(t, "1d", v.Get("rw"))
	assert.Equal(t, "20", v.Get("er"))
	assert.Equal(t, "json", v.Get("format"))
	assert.False(t, v.Has("target"))

	v = Params{Query: "x"}.Values()
	assert.False(t, v.Has("f"))
	assert.False(t, v.Has("rd"))
	assert.False(t, v.Has("rw"))
	assert.False(t, v.Has("er"))
	assert.Equal(t, "0", v.Get("h"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("ftp://example.org")
	assert.Error(t, err)
	_, err = NewClient("://")
	assert.Error(t, err)
}

func TestClientQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"query":"db*","hits":{"@total":"3","@sent":"0","@first":"0"}}}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c, err := NewClient(srv.URL, WithMetrics(rec))
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), Params{Target: "hits", Query: "db*"})
	require.NoError(t, err)
	assert.Equal(t, "db*", gotQuery)
	assert.Equal(t, 3, resp.Hits.Total)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "hits", rec.calls[0].target)
	assert.NoError(t, rec.calls[0].err)
}

func TestClientQuery_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c, err := NewClient(srv.URL, WithMetrics(rec))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), Params{Target: "word", Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "overloaded", se.Body)
	require.Len(t, rec.calls, 1)
	assert.Error(t, rec.calls[0].err)
}

func TestClientQuery_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), Params{Query: "slow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestClientFacetNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, FacetDiscoveryQuery, q.Get("q"))
		assert.Equal(t, "0", q.Get("h"))
		assert.Equal(t, "999", q.Get("c"))
		_, _ = w.Write([]byte(`{"result":{"completions":{"@total":"2","@sent":"2","c":[
			{"text":":info:facet:author"},{"text":":info:facet:venue"}]}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	names, err := c.FacetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "venue"}, names)
}

func TestClientURL(t *testing.T) {
	c, err := NewClient("http://localhost:8888")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8888/?c=0&format=json&h=0&q=a%2A", c.URL(Params{Query: "a*"}))
}

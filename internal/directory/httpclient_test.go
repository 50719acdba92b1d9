package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoUsers = `[
  {"id": 1, "name": "Leanne Graham", "username": "Bret", "address": {"zipcode": "92998-3874", "geo": {"lat": "-37.3159"}}},
  {"id": 2, "name": "Ervin Howell", "username": "Antonette"}
]`

// directoryServer serves fixed responses keyed by request path and asserts the
// request shape every directory call must have.
func directoryServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "directory calls are GET only")
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		fn, ok := routes[r.URL.EscapedPath()]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fn(w)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func respond(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// ---------------------------------------------------------------------------
// FetchAll
// ---------------------------------------------------------------------------

func TestFetchAll_HappyPath(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users": respond(http.StatusOK, twoUsers),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	users, err := client.FetchAll(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "1", users[0].ID)
	assert.Equal(t, "Bret", users[0].Username)
	require.NotNil(t, users[0].Address)
	assert.Equal(t, "92998-3874", users[0].Address.ZipCode)
	assert.Equal(t, "2", users[1].ID)
	assert.Empty(t, users[1].Handle, "remote users carry no storage handle")
}

func TestFetchAll_CustomUsersPath(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/v2/people": respond(http.StatusOK, twoUsers),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL+"/"), WithUsersPath("v2/people/"))

	users, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestFetchAll_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusServiceUnavailable, http.StatusCreated} {
		ts := directoryServer(t, map[string]func(http.ResponseWriter){
			"/users": respond(status, twoUsers),
		})
		client := NewHTTPClient(WithBaseURL(ts.URL))

		users, err := client.FetchAll(context.Background())

		require.Error(t, err)
		assert.Nil(t, users)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, status, se.StatusCode)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
}

func TestFetchAll_RedirectIsStatusError(t *testing.T) {
	for _, status := range []int{http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect} {
		var elsewhereCalls atomic.Int32
		ts := directoryServer(t, map[string]func(http.ResponseWriter){
			"/users": func(w http.ResponseWriter) {
				w.Header().Set("Location", "/elsewhere")
				w.WriteHeader(status)
			},
			"/elsewhere": func(w http.ResponseWriter) {
				elsewhereCalls.Add(1)
				respond(http.StatusOK, twoUsers)(w)
			},
		})
		client := NewHTTPClient(WithBaseURL(ts.URL))

		users, err := client.FetchAll(context.Background())

		require.Error(t, err)
		assert.Nil(t, users)
		code, ok := StatusCode(err)
		assert.True(t, ok)
		assert.Equal(t, status, code)
		assert.Zero(t, elsewhereCalls.Load(), "redirects are not followed")
	}
}

func TestFetchAll_EmptyBodyIsAnError(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      "",
		"whitespace": " \n\t",
		"null":       "null",
	} {
		t.Run(name, func(t *testing.T) {
			ts := directoryServer(t, map[string]func(http.ResponseWriter){
				"/users": respond(http.StatusOK, body),
			})
			client := NewHTTPClient(WithBaseURL(ts.URL))

			users, err := client.FetchAll(context.Background())

			require.Error(t, err)
			assert.Nil(t, users)
			code, ok := StatusCode(err)
			require.True(t, ok, "an empty 200 is a status error, not a decode error")
			assert.Equal(t, http.StatusOK, code)
		})
	}
}

func TestFetchAll_EmptyArrayIsSuccess(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users": respond(http.StatusOK, "[]"),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	users, err := client.FetchAll(context.Background())

	require.NoError(t, err)
	require.NotNil(t, users)
	assert.Empty(t, users)
}

func TestFetchAll_DecodeError(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     "<html>oops</html>",
		"object":       `{"id": 1}`,
		"truncated":    `[{"id": 1,`,
		"bad id shape": `[{"id": {"nested": true}}]`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := directoryServer(t, map[string]func(http.ResponseWriter){
				"/users": respond(http.StatusOK, body),
			})
			client := NewHTTPClient(WithBaseURL(ts.URL))

			_, err := client.FetchAll(context.Background())

			require.Error(t, err)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, len(body), de.Body)
			_, isStatus := StatusCode(err)
			assert.False(t, isStatus, "decode failures are reported separately from status errors")
		})
	}
}

func TestFetchAll_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close() // nothing listens any more

	client := NewHTTPClient(WithBaseURL(url))
	_, err := client.FetchAll(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestFetchAll_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	client := NewHTTPClient(WithBaseURL(ts.URL), WithTimeout(50*time.Millisecond))
	_, err := client.FetchAll(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	code, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestFetchAll_NoRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewHTTPClient(WithBaseURL(ts.URL))
	_, err := client.FetchAll(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// ---------------------------------------------------------------------------
// FetchByID
// ---------------------------------------------------------------------------

func TestFetchByID_HappyPath(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users/3": respond(http.StatusOK, `{"id": 3, "name": "Clementine Bauch", "company": {"bs": "e-enable strategic applications"}}`),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	u, err := client.FetchByID(context.Background(), "3")

	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "3", u.ID)
	assert.Equal(t, "Clementine Bauch", u.Name)
	require.NotNil(t, u.Company)
	assert.Equal(t, "e-enable strategic applications", u.Company.BS)
}

func TestFetchByID_NotFound(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	u, err := client.FetchByID(context.Background(), "1000")

	require.Error(t, err)
	assert.Nil(t, u)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "1000")
}

func TestFetchByID_EmptyBody(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users/4": respond(http.StatusOK, ""),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	_, err := client.FetchByID(context.Background(), "4")

	code, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, IsNotFound(err))
}

func TestFetchByID_DecodeError(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users/5": respond(http.StatusOK, `[{"id": 5}]`),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	_, err := client.FetchByID(context.Background(), "5")

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Op, "5")
}

func TestFetchByID_EscapesID(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users/a%2Fb": respond(http.StatusOK, `{"id": "a/b"}`),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	u, err := client.FetchByID(context.Background(), "a/b")

	require.NoError(t, err)
	assert.Equal(t, "a/b", u.ID)
}

func TestFetchByID_ConcurrentCallsDoNotInterfere(t *testing.T) {
	routes := map[string]func(http.ResponseWriter){}
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		routes["/users/"+id] = respond(http.StatusOK, `{"id": `+id+`}`)
	}
	ts := directoryServer(t, routes)
	client := NewHTTPClient(WithBaseURL(ts.URL))

	var wg sync.WaitGroup
	errs := make(chan error, len(routes))
	for path := range routes {
		id := path[len("/users/"):]
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := client.FetchByID(context.Background(), id)
			if err != nil {
				errs <- err
				return
			}
			if u.ID != id {
				errs <- errors.New("got " + u.ID + " for " + id)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestFetchByID_RedirectIsStatusError(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users/1": func(w http.ResponseWriter) {
			w.Header().Set("Location", "/users/2")
			w.WriteHeader(http.StatusFound)
		},
		"/users/2": respond(http.StatusOK, `{"id": 2, "name": "Ervin Howell"}`),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL))

	u, err := client.FetchByID(context.Background(), "1")

	require.Error(t, err)
	assert.Nil(t, u)
	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusFound, code)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

func TestWithTimeout_DoesNotModifySharedClient(t *testing.T) {
	shared := &http.Client{Timeout: 7 * time.Second}

	NewHTTPClient(WithHTTPClient(shared), WithTimeout(time.Second))
	NewHTTPClient(WithTimeout(time.Second), WithHTTPClient(shared))

	assert.Equal(t, 7*time.Second, shared.Timeout)
	assert.Nil(t, shared.CheckRedirect)
}

func TestWithTimeout_IndependentOfOptionOrder(t *testing.T) {
	shared := &http.Client{Timeout: 7 * time.Second}

	before := NewHTTPClient(WithTimeout(time.Second), WithHTTPClient(shared))
	after := NewHTTPClient(WithHTTPClient(shared), WithTimeout(time.Second))
	plain := NewHTTPClient(WithHTTPClient(shared))
	defaults := NewHTTPClient()

	assert.Equal(t, time.Second, before.http.Timeout)
	assert.Equal(t, time.Second, after.http.Timeout)
	assert.Equal(t, 7*time.Second, plain.http.Timeout, "a supplied client keeps its own timeout")
	assert.Equal(t, DefaultTimeout, defaults.http.Timeout)
}

func TestWithHTTPClient_RedirectsStillReported(t *testing.T) {
	ts := directoryServer(t, map[string]func(http.ResponseWriter){
		"/users": func(w http.ResponseWriter) {
			w.Header().Set("Location", "/elsewhere")
			w.WriteHeader(http.StatusFound)
		},
		"/elsewhere": respond(http.StatusOK, twoUsers),
	})
	client := NewHTTPClient(WithBaseURL(ts.URL), WithHTTPClient(http.DefaultClient))

	_, err := client.FetchAll(context.Background())

	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusFound, code)
	assert.Nil(t, http.DefaultClient.CheckRedirect)
}

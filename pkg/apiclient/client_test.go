package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sparkpad-app/sparkpad/backend/pkg/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverState struct {
	mu           sync.Mutex
	validAccess  string
	refreshToken string
	refreshCalls int32
	dataCalls    int32
}

// newAuthServer runs a backend stub: /api/data requires the current access
// token, /api/auth/refresh rotates the pair.
func newAuthServer(t *testing.T, st *serverState) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&st.dataCalls, 1)
		st.mu.Lock()
		valid := "Bearer " + st.validAccess
		st.mu.Unlock()

		if r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"message": "Access token invalid or expired", "code": "AUTH_EXPIRED"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"value": "ok"},
		})
	})

	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&st.refreshCalls, 1)
		require.Empty(t, r.Header.Get("Authorization"), "refresh must not carry a bearer token")

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		st.mu.Lock()
		defer st.mu.Unlock()
		if body.RefreshToken != st.refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"message": "Refresh token invalid or expired", "code": "AUTH_REQUIRED"},
			})
			return
		}
		st.validAccess = "access-2"
		st.refreshToken = "refresh-2"
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"accessToken": "access-2", "refreshToken": "refresh-2"},
		})
	})

	return httptest.NewServer(mux)
}

func TestSingleFlightRefresh(t *testing.T) {
	st := &serverState{validAccess: "access-2", refreshToken: "refresh-1"}
	srv := newAuthServer(t, st)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	// Stale access token, valid refresh token: every call will 401 first.
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	client := apiclient.New(srv.URL, store)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out struct {
				Value string `json:"value"`
			}
			errs[i] = client.Do(context.Background(), http.MethodGet, "/api/data", nil, &out)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.refreshCalls), "exactly one refresh exchange")
}

func TestQuotaFailureDoesNotRefresh(t *testing.T) {
	var refreshCalls, dataCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/send", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dataCalls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"message": "Daily reply limit reached", "code": "QUOTA_EXCEEDED"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	client := apiclient.New(srv.URL, store)

	err := client.Do(context.Background(), http.MethodPost, "/api/send", nil, nil)
	require.Error(t, err)

	var qe *apiclient.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "QUOTA_EXCEEDED", qe.Code)
	assert.True(t, apiclient.IsQuotaError(err))

	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls), "402 must never trigger a refresh")
	assert.Equal(t, int32(1), atomic.LoadInt32(&dataCalls), "402 must never be retried")

	// Credentials survive a quota failure.
	pair, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", pair.AccessToken)
}

func TestCredentialAtomicityAfterRefresh(t *testing.T) {
	st := &serverState{validAccess: "access-2", refreshToken: "refresh-1"}
	srv := newAuthServer(t, st)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	client := apiclient.New(srv.URL, store)

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/api/data", nil, nil))

	// Both halves of the pair rotated together.
	pair, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-2", pair.RefreshToken)
}

func TestRefreshFailureFailsAllWaiters(t *testing.T) {
	// Refresh token does not match: refresh is rejected for everyone.
	st := &serverState{validAccess: "access-2", refreshToken: "other"}
	srv := newAuthServer(t, st)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	var expiredCalls int32
	client := apiclient.New(srv.URL, store, apiclient.WithAuthExpiredHandler(func() {
		atomic.AddInt32(&expiredCalls, 1)
	}))

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), http.MethodGet, "/api/data", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.ErrorIs(t, err, apiclient.ErrAuthRequired, "call %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.refreshCalls), "exactly one refresh attempt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&expiredCalls), "sign-in hook fires once")

	// Credentials are purged on refresh failure.
	pair, err := store.Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestRetryMarkerPreventsSecondRefresh(t *testing.T) {
	// The refresh succeeds but the replay is rejected again: the call must
	// fail rather than loop into a second refresh.
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"accessToken": "access-2", "refreshToken": "refresh-2"},
		})
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	client := apiclient.New(srv.URL, store)

	err := client.Do(context.Background(), http.MethodGet, "/api/data", nil, nil)
	assert.ErrorIs(t, err, apiclient.ErrAuthRequired)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "at most one refresh per original call")
}

func TestOtherErrorsPropagateUnchanged(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	})
	mux.HandleFunc("/api/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"message": "Idea not found", "code": "NOT_FOUND"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	client := apiclient.New(srv.URL, store)

	err := client.Do(context.Background(), http.MethodGet, "/api/missing", nil, nil)
	var ae *apiclient.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusNotFound, ae.StatusCode)
	assert.Equal(t, "NOT_FOUND", ae.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls))
}

func TestNetworkFailureKeepsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // connection refused from here on

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	client := apiclient.New(url, store)

	err := client.Do(context.Background(), http.MethodGet, "/api/data", nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apiclient.ErrAuthRequired))
	assert.False(t, apiclient.IsQuotaError(err))

	pair, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, "a", pair.AccessToken, "network failures must not purge credentials")
}

func TestSendMessageFeedsLedger(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ideas/idea-1/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"userMessage":      map[string]string{"id": "m1", "role": "user", "content": "hi"},
				"assistantMessage": map[string]string{"id": "m2", "role": "assistant", "content": "hello"},
				"remainingReplies": 4,
				"usage":            map[string]int{"promptTokens": 10, "completionTokens": 5, "totalTokens": 15},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := apiclient.NewMemoryTokenStore()
	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	client := apiclient.New(srv.URL, store)

	result, err := client.SendMessage(context.Background(), "idea-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", result.AssistantMessage.Content)
	assert.Equal(t, 4, result.RemainingReplies)
	assert.Equal(t, int64(15), result.Usage.TotalTokens)

	ledger := apiclient.NewLedger()
	ledger.ApplyExchangeResult(result)
	assert.Equal(t, 4, ledger.Remaining())
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/tokens.json"
	store := apiclient.NewFileTokenStore(path)

	pair, err := store.Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	require.NoError(t, store.Save(apiclient.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	pair, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a1", pair.AccessToken)
	assert.Equal(t, "r1", pair.RefreshToken)

	require.NoError(t, store.Clear())
	pair, err = store.Load()
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

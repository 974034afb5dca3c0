package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeServer is a minimal sync server for budgets.
type fakeServer struct {
	budgets  map[uuid.UUID]model.Budget
	auth     []string
	afters   []string
	mu       sync.Mutex
	failWith int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{budgets: make(map[uuid.UUID]model.Budget)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fs.mu.Lock()
			fs.auth = append(fs.auth, req.Header.Get("Authorization"))
			status := fs.failWith
			fs.mu.Unlock()
			if status != 0 {
				http.Error(w, "injected", status)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/wallet/budgets", func(r chi.Router) {
		r.Get("/", fs.list)
		r.Post("/update", fs.update)
		r.Delete("/delete", fs.remove)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) list(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.afters = append(fs.afters, r.URL.Query().Get("after"))

	items := make([]model.Budget, 0, len(fs.budgets))
	for _, b := range fs.budgets {
		items = append(items, b)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"budgets":         items,
		"serverTimestamp": 1717243200,
	})
}

func (fs *fakeServer) update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Budget model.Budget `json:"budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fs.mu.Lock()
	fs.budgets[body.Budget.ID] = body.Budget
	fs.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (fs *fakeServer) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	fs.mu.Lock()
	delete(fs.budgets, id)
	fs.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (fs *fakeServer) fail(status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failWith = status
}

func newTestClient(url string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"})
	return NewClient(Config{BaseURL: url, Timeout: time.Second, BreakerFailures: 3, BreakerTimeout: time.Minute}, ts, nil)
}

func TestResource_PushPullDelete(t *testing.T) {
	fs, srv := newFakeServer(t)
	budgets := Budgets(newTestClient(srv.URL))
	ctx := context.Background()

	ids := "a,b"
	budget := model.Budget{ID: uuid.New(), Name: "Food", Amount: decimal.NewFromInt(300), CategoryIDs: &ids, OrderNum: 2}
	budget.IsSynced = true
	budget.Revision = 7
	require.NoError(t, budgets.Push(ctx, budget))

	result, err := budgets.Pull(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	got := result.Items[0]
	assert.Equal(t, budget.ID, got.ID)
	assert.Equal(t, "Food", got.Name)
	assert.True(t, budget.Amount.Equal(got.Amount))
	assert.Equal(t, ids, *got.CategoryIDs)
	assert.False(t, got.IsSynced, "local bookkeeping never travels")
	assert.Zero(t, got.Revision)
	require.NotNil(t, result.ServerTimestamp)
	assert.Equal(t, int64(1717243200), result.ServerTimestamp.Unix())

	require.NoError(t, budgets.Delete(ctx, budget.ID))
	result, err = budgets.Pull(ctx, time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, []string{"", "1700000000"}, fs.afters)
	for _, h := range fs.auth {
		assert.Equal(t, "Bearer secret", h)
	}
}

func TestResource_ErrorClassification(t *testing.T) {
	tests := []struct {
		wantErr       error
		name          string
		status        int
		wantRetryable bool
	}{
		{name: "server error", status: http.StatusInternalServerError, wantErr: common.ErrRemoteUnavailable, wantRetryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: common.ErrRateLimit, wantRetryable: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: common.ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, wantErr: common.ErrNotFound},
		{name: "bad request", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, srv := newFakeServer(t)
			fs.fail(tt.status)

			err := Budgets(newTestClient(srv.URL)).Push(context.Background(), model.Budget{ID: uuid.New()})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantRetryable, common.IsRetryable(err))
		})
	}
}

func TestClient_TransportErrorIsRetryable(t *testing.T) {
	_, srv := newFakeServer(t)
	client := newTestClient(srv.URL)
	srv.Close()

	_, err := Budgets(client).Pull(context.Background(), time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.True(t, common.IsRetryable(err))
}

func TestClient_CircuitBreaker(t *testing.T) {
	fs, srv := newFakeServer(t)
	client := newTestClient(srv.URL)
	budgets := Budgets(client)
	ctx := context.Background()

	var requests atomic.Int32
	count := func() {
		fs.mu.Lock()
		requests.Store(int32(len(fs.auth)))
		fs.mu.Unlock()
	}

	fs.fail(http.StatusServiceUnavailable)
	for i := 0; i < 3; i++ {
		_, err := budgets.Pull(ctx, time.Time{})
		require.ErrorIs(t, err, common.ErrRemoteUnavailable)
	}

	_, err := budgets.Pull(ctx, time.Time{})
	require.ErrorIs(t, err, common.ErrCircuitOpen)
	assert.False(t, common.IsRetryable(err))

	count()
	assert.Equal(t, int32(3), requests.Load(), "open circuit must not reach the server")
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	fs, srv := newFakeServer(t)
	budgets := Budgets(newTestClient(srv.URL))
	ctx := context.Background()

	fs.fail(http.StatusBadRequest)
	for i := 0; i < 5; i++ {
		_, err := budgets.Pull(ctx, time.Time{})
		require.Error(t, err)
		require.NotErrorIs(t, err, common.ErrCircuitOpen)
	}

	fs.fail(0)
	_, err := budgets.Pull(ctx, time.Time{})
	assert.NoError(t, err)
}

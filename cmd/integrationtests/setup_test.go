package integrationtests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	auth "auction-backend/internal/authService"
	bidding "auction-backend/internal/biddingService"
	"auction-backend/internal/clock"
	"auction-backend/internal/events"
	"auction-backend/internal/metrics"
	"auction-backend/internal/repository"
	"auction-backend/internal/server"
	handler "auction-backend/services/bidding/handler"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "integration-secret-0123456789abcdef0123"

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// testApp is the full HTTP stack over one store, driven by a manual clock
type testApp struct {
	router  *gin.Engine
	clock   *clock.Manual
	bidding *bidding.BiddingService
	events  *events.Recorder
}

var storeDrivers = []string{"memory", "sqlite"}

// newTestApp wires the router the way main does, minus Redis and Kafka
func newTestApp(t *testing.T, driver string) *testApp {
	t.Helper()

	var repo repository.AuctionDB
	switch driver {
	case "sqlite":
		dsn := "file:" + filepath.Join(t.TempDir(), "auction.db") + "?_foreign_keys=on&_busy_timeout=5000"
		sqlRepo, err := repository.OpenSQLite(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlRepo.Close() })
		repo = sqlRepo
	default:
		repo = repository.NewMemoryRepo()
	}

	clk := clock.NewManual(epoch)
	rec := events.NewRecorder()
	m := metrics.New()

	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithClock(clk),
		bidding.WithPublisher(rec),
		bidding.WithMetrics(m),
	)
	authSvc := auth.NewService(repo,
		auth.NewTokenIssuer(testSecret, 24*time.Hour, clk),
		auth.NewMemorySessionStore(clk),
		24*time.Hour,
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithClock(clk),
	)

	router := server.SetupRouter(server.Deps{
		Bidding:  handler.NewBiddingHandler(biddingSvc),
		Auth:     handler.NewAuthHandler(authSvc, handler.CookieConfig{MaxAge: 24 * time.Hour}),
		Resolver: authSvc,
		Metrics:  m,
	})

	t.Cleanup(func() { _ = biddingSvc.Close() })
	return &testApp{router: router, clock: clk, bidding: biddingSvc, events: rec}
}

// publishedEvents waits for queued events to be delivered and returns them.
// No events are published after it returns.
func (a *testApp) publishedEvents(t *testing.T) []events.Event {
	t.Helper()
	require.NoError(t, a.bidding.Close())
	return a.events.Events()
}

// forEachStore runs fn as a subtest against every store driver
func forEachStore(t *testing.T, fn func(t *testing.T, app *testApp)) {
	for _, driver := range storeDrivers {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			fn(t, newTestApp(t, driver))
		})
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the JSON envelope.
// body may be raw []byte or anything json.Marshal accepts; token may be empty.
func (a *testApp) ExecuteRequestAndParse(t *testing.T, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// user is a registered, logged-in account
type user struct {
	ID    string
	Token string
}

func (a *testApp) signup(t *testing.T, username string) user {
	t.Helper()

	resp, w := a.ExecuteRequestAndParse(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := resp["data"].(map[string]any)["id"].(string)

	resp, w = a.ExecuteRequestAndParse(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return user{ID: id, Token: resp["data"].(map[string]any)["token"].(string)}
}

// createItem lists an item and returns its id
func (a *testApp) createItem(t *testing.T, seller user, title, price string, hours int) string {
	t.Helper()

	resp, w := a.ExecuteRequestAndParse(t, http.MethodPost, "/api/items", seller.Token, map[string]any{
		"title":          title,
		"starting_price": price,
		"duration":       hours,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return resp["data"].(map[string]any)["id"].(string)
}

// bid places a bid and returns the status and envelope
func (a *testApp) bid(t *testing.T, bidder user, itemID string, amount any) (map[string]any, int) {
	t.Helper()

	resp, w := a.ExecuteRequestAndParse(t, http.MethodPost, "/api/bids", bidder.Token, map[string]any{
		"item_id": itemID,
		"amount":  amount,
	})
	return resp, w.Code
}

// requireAmount compares a JSON money value by numeric value
func requireAmount(t *testing.T, want string, got any) {
	t.Helper()

	s, ok := got.(string)
	require.True(t, ok, "amount %v is not a string", got)
	require.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}

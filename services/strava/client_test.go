package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goreal-engine/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestClient(t *testing.T, handler http.Handler, perPage, maxPages int) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Strava.BaseURL = srv.URL
	cfg.Strava.TokenURL = srv.URL + "/oauth/token"
	cfg.Strava.ClientID = "client-id"
	cfg.Strava.ClientSecret = "client-secret"
	cfg.Strava.PerPage = perPage
	cfg.Strava.MaxPages = maxPages
	cfg.Strava.RequestTimeout = 5 * time.Second

	return NewClient(cfg)
}

func writeActivities(w http.ResponseWriter, acts []Activity) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acts)
}

func TestExchangeCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "the-code", r.Form.Get("code"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_at":    time.Now().Add(6 * time.Hour).Unix(),
			"scope":         "activity:read",
			"athlete":       map[string]any{"id": 42},
		})
	})

	client := newTestClient(t, handler, 30, 10)

	grant, err := client.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "access", grant.AccessToken)
	require.Equal(t, int64(42), grant.Athlete.ID)
	require.True(t, grant.Expiry().After(time.Now()))
}

func TestRefreshInvalidGrant(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	client := newTestClient(t, handler, 30, 10)

	_, err := client.Refresh(context.Background(), "stale-refresh")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestTokenEndpointUnavailable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, handler, 30, 10)

	_, err := client.Refresh(context.Background(), "refresh")

	var unavailable *UpstreamUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestListActivitiesAuthRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(t, handler, 30, 10)

	_, err := client.ListActivities(context.Background(), "bad-token", time.Time{}, 1)

	var authErr *UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
}

func TestListActivitiesServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient(t, handler, 30, 10)

	_, err := client.ListActivities(context.Background(), "token", time.Time{}, 1)

	var unavailable *UpstreamUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestFetchSinceWalksPages(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.Equal(t, strconv.FormatInt(since.Unix(), 10), r.URL.Query().Get("after"))

		switch r.URL.Query().Get("page") {
		case "1":
			writeActivities(w, []Activity{
				{ExternalID: 1, Type: "Run", DistanceMeters: 5000},
				{ExternalID: 2, Type: "Run", DistanceMeters: 8000},
			})
		case "2":
			writeActivities(w, []Activity{
				{ExternalID: 3, Type: "Ride", DistanceMeters: 20000},
			})
		default:
			t.Fatalf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, handler, 2, 5)

	result, err := client.FetchSince(context.Background(), "token", since)
	require.NoError(t, err)
	require.False(t, result.Truncated)
	require.Len(t, result.Activities, 3)
	require.Equal(t, int64(3), result.Activities[2].ExternalID)
}

func TestFetchSinceHitsPageCap(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeActivities(w, []Activity{
			{ExternalID: int64(page * 10), Type: "Run", DistanceMeters: 5000},
			{ExternalID: int64(page*10 + 1), Type: "Run", DistanceMeters: 5000},
		})
	})

	client := newTestClient(t, handler, 2, 2)

	result, err := client.FetchSince(context.Background(), "token", time.Time{})
	require.NoError(t, err)
	require.True(t, result.Truncated)
	require.Len(t, result.Activities, 4)
}

func TestActivityDistanceKm(t *testing.T) {
	act := Activity{DistanceMeters: 120_000}
	require.Equal(t, 120.0, act.DistanceKm())
}

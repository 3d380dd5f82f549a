package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake API saw.
type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newFakeAPI(t *testing.T, status int, response string) (*Client, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Auth = r.Header.Get("Authorization")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 5*time.Second), rec
}

func TestLogin(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusOK, `{"access_token": "acc", "refresh_token": "ref"}`)

	tokens, err := client.Login(context.Background(), "ops@ecosort.io", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "acc", tokens.AccessToken)
	assert.Equal(t, "ref", tokens.RefreshToken)
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/login/", rec.Path)
	assert.Empty(t, rec.Auth)
	assert.Equal(t, "ops@ecosort.io", rec.Body["email"])
	assert.Equal(t, "s3cret", rec.Body["password"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	client, _ := newFakeAPI(t, http.StatusUnauthorized, `{"error": "Invalid email or password"}`)

	_, err := client.Login(context.Background(), "ops@ecosort.io", "wrong")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Invalid email or password", UserMessage(err, "fallback"))
}

func TestLoginMissingToken(t *testing.T) {
	client, _ := newFakeAPI(t, http.StatusOK, `{}`)

	_, err := client.Login(context.Background(), "a@b.c", "x")
	assert.Error(t, err)
}

func TestListSmartBinsSendsBearerToken(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusOK, `[
		{"id": 1, "status": "Active", "cover": "Closed", "location": "Dock A", "capacity": 120},
		{"id": 2, "status": "Inactive", "cover": "Opened", "location": "Lobby", "capacity": 60.5}
	]`)

	bins, err := client.ListSmartBins(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", rec.Auth)
	assert.Equal(t, "/smartbins/", rec.Path)
	require.Len(t, bins, 2)
	assert.Equal(t, "Dock A", bins[0].Location)
	assert.Equal(t, 60.5, bins[1].Capacity)
}

func TestListWaste(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusOK, `[
		{"id": 9, "waste_type": "metal", "time_collected": "2024-05-01T08:00:00Z", "smartbin": 2, "wastebot": 3}
	]`)

	recs, err := client.ListWaste(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "/waste/", rec.Path)
	require.Len(t, recs, 1)
	assert.Equal(t, "metal", recs[0].WasteType)
	assert.Equal(t, "2", recs[0].SmartBin.String())
}

func TestDeleteUsesDetailPath(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusNoContent, ``)

	require.NoError(t, client.DeleteWasteBin(context.Background(), "tok", 42))

	assert.Equal(t, http.MethodDelete, rec.Method)
	assert.Equal(t, "/wastebins/42/", rec.Path)
}

func TestSetSmartBinCover(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusOK, `{"id": 5, "status": "Active", "cover": "Opened", "location": "Yard", "capacity": 80}`)

	bin, err := client.SetSmartBinCover(context.Background(), "tok", 5, "Opened")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, rec.Method)
	assert.Equal(t, "/smartbins/5/", rec.Path)
	assert.Equal(t, map[string]any{"cover": "Opened"}, rec.Body)
	assert.Equal(t, "Yard", bin.Location)
}

func TestSetWasteBotStatusEmptyBody(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusOK, ``)

	bot, err := client.SetWasteBotStatus(context.Background(), "tok", 8, "Inactive")
	require.NoError(t, err)

	assert.Equal(t, "/wastebots/8/", rec.Path)
	assert.Equal(t, int64(8), bot.ID)
	assert.Equal(t, "Inactive", bot.Status)
}

func TestCreateWasteBot(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusCreated, `{"id": 11, "model": "WB-2", "status": "Inactive", "location": "Hall", "autonomy": 5000}`)

	bot, err := client.CreateWasteBot(context.Background(), "tok", NewWasteBot{Model: "WB-2", Status: "Inactive", Location: "Hall", Autonomy: 5000})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/wastebots/", rec.Path)
	assert.Equal(t, float64(5000), rec.Body["autonomy"])
	assert.Equal(t, int64(11), bot.ID)
}

func TestRegisterFieldError(t *testing.T) {
	client, rec := newFakeAPI(t, http.StatusBadRequest, `{"email": ["user with this email already exists."]}`)

	_, err := client.Register(context.Background(), NewUser{Email: "dup@ecosort.io"})
	require.Error(t, err)

	assert.Empty(t, rec.Auth)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "email: user with this email already exists.", UserMessage(err, ""))
}

func TestServerErrorWithHTMLBody(t *testing.T) {
	client, _ := newFakeAPI(t, http.StatusInternalServerError, `<html><body>boom</body></html>`)

	_, err := client.ListUsers(context.Background(), "tok")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestNetworkError(t *testing.T) {
	client := NewClient("http://localhost:99999", time.Second)

	_, err := client.ListWasteBots(context.Background(), "tok")
	assert.Error(t, err)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error": "bad"}`, "bad"},
		{"detail field", `{"detail": "Authentication credentials were not provided."}`, "Authentication credentials were not provided."},
		{"field errors sorted", `{"role": ["required"], "email": ["invalid"]}`, "email: invalid"},
		{"plain text", `rate limited`, "rate limited"},
		{"html", `<h1>502</h1>`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-consultation-service/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(baseURL string) CallSessionProvider {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewStreamProvider(config.StreamConfig{
		APIKey:        "test-key",
		APISecret:     "test-secret",
		BaseURL:       baseURL,
		Timeout:       2 * time.Second,
		TokenValidity: time.Hour,
	}, log)
}

func TestCreateSessionSendsAuthenticatedRequest(t *testing.T) {
	var gotPath, gotAuth, gotAuthType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAuthType = r.Header.Get("Stream-Auth-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	err := p.CreateSession(context.Background(), "appointment-abc", []CallMember{
		{UserID: uuid.New().String(), Role: "user"},
	}, CallMetadata{AppointmentID: uuid.New().String()})
	require.NoError(t, err)

	assert.Equal(t, "/video/call/default/appointment-abc", gotPath)
	assert.Equal(t, "jwt", gotAuthType)
	require.NotEmpty(t, gotAuth)

	// The auth header is a server JWT signed with the API secret
	token, err := jwt.Parse(gotAuth, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
}

func TestCreateSessionFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	err := p.CreateSession(context.Background(), "appointment-abc", nil, CallMetadata{})
	assert.ErrorIs(t, err, ErrCallSessionFailed)
}

func TestCreateSessionFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newTestProvider(srv.URL)
	err := p.CreateSession(context.Background(), "appointment-abc", nil, CallMetadata{})
	assert.ErrorIs(t, err, ErrCallSessionFailed)
}

func TestEndSessionHitsEndEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	require.NoError(t, p.EndSession(context.Background(), "appointment-abc"))
	assert.Equal(t, "/video/call/default/appointment-abc/end", gotPath)
}

func TestMintTokenScopedToCall(t *testing.T) {
	p := newTestProvider("http://unused")
	userID := uuid.New()

	signed, err := p.MintToken("appointment-abc", userID)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, userID.String(), claims["user_id"])

	cids, ok := claims["call_cids"].([]interface{})
	require.True(t, ok)
	require.Len(t, cids, 1)
	assert.Equal(t, "default:appointment-abc", cids[0])
}

func TestMintTokenNeverReusesTokens(t *testing.T) {
	p := newTestProvider("http://unused")
	userID := uuid.New()

	first, err := p.MintToken("appointment-abc", userID)
	require.NoError(t, err)
	second, err := p.MintToken("appointment-abc", userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

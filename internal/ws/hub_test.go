package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forex-signal-go/internal/twelvedata"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetQuotes(ctx context.Context, symbols []string) (map[string]*float64, error) {
	args := m.Called(ctx, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*float64), args.Error(1)
}

func acceptAll(token string) (uint, error) {
	if token == "valid" {
		return 7, nil
	}
	return 0, errors.New("bad token")
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastPrices_SendsQuotesToClients(t *testing.T) {
	// Arrange
	source := new(MockSource)
	price := 1.1000
	source.On("GetQuotes", mock.Anything, []string{"EUR/USD"}).
		Return(map[string]*float64{"EUR/USD": &price}, nil)
	hub := NewHub(zap.NewNop(), source, acceptAll, []string{"EUR/USD"}, time.Minute)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	// Act
	hub.broadcastPrices(context.Background())

	// Assert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload map[string]float64
	require.NoError(t, conn.ReadJSON(&payload))
	assert.InDelta(t, 1.1000, payload["EUR/USD"], 1e-9)
}

func TestBroadcastPrices_SkipsUpstreamWithNoClients(t *testing.T) {
	// Arrange
	source := new(MockSource)
	hub := NewHub(zap.NewNop(), source, acceptAll, []string{"EUR/USD"}, time.Minute)

	// Act
	hub.broadcastPrices(context.Background())

	// Assert
	source.AssertNotCalled(t, "GetQuotes", mock.Anything, mock.Anything)
}

func TestBroadcastPrices_RateLimitErrorPayload(t *testing.T) {
	// Arrange
	source := new(MockSource)
	source.On("GetQuotes", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("quotes: %w", twelvedata.ErrRateLimited))
	hub := NewHub(zap.NewNop(), source, acceptAll, []string{"EUR/USD"}, time.Minute)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	// Act
	hub.broadcastPrices(context.Background())

	// Assert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload errorPayload
	require.NoError(t, conn.ReadJSON(&payload))
	assert.True(t, payload.Error)
	assert.Equal(t, "RATE_LIMIT", payload.Type)
}

func TestBroadcastPrices_NilPricesAreOmitted(t *testing.T) {
	// Arrange
	source := new(MockSource)
	price := 1.2650
	source.On("GetQuotes", mock.Anything, mock.Anything).
		Return(map[string]*float64{"GBP/USD": &price, "EUR/USD": nil}, nil)
	hub := NewHub(zap.NewNop(), source, acceptAll, []string{"EUR/USD", "GBP/USD"}, time.Minute)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	// Act
	hub.broadcastPrices(context.Background())

	// Assert
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var payload map[string]float64
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Len(t, payload, 1)
	assert.InDelta(t, 1.2650, payload["GBP/USD"], 1e-9)
}

func TestAuth_InvalidTokenDisconnects(t *testing.T) {
	// Arrange
	hub := NewHub(zap.NewNop(), new(MockSource), acceptAll, nil, time.Minute)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	// Act
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "AUTH", "token": "garbage"}))

	// Assert
	waitForClients(t, hub, 0)
}

func TestNotifyUsers_OnlyReachesAuthenticatedTargets(t *testing.T) {
	// Arrange
	hub := NewHub(zap.NewNop(), new(MockSource), acceptAll, nil, time.Minute)
	authed := dialHub(t, hub)
	anonymous := dialHub(t, hub)
	waitForClients(t, hub, 2)

	require.NoError(t, authed.WriteJSON(map[string]string{"type": "AUTH", "token": "valid"}))
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		done := false
		for c := range hub.clients {
			if c.user() == 7 {
				done = true
			}
		}
		hub.mu.RUnlock()
		if done {
			break
		}
		require.False(t, time.Now().After(deadline), "client never authenticated")
		time.Sleep(5 * time.Millisecond)
	}

	// Act
	hub.NotifyUsers([]uint{7}, map[string]string{"type": "NEW_REPLY"})

	// Assert
	authed.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload map[string]string
	require.NoError(t, authed.ReadJSON(&payload))
	assert.Equal(t, "NEW_REPLY", payload["type"])

	anonymous.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := anonymous.ReadMessage()
	assert.Error(t, err)
}

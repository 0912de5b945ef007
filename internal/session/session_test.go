package session

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokercore/internal/table"
	"github.com/vctt94/pokercore/internal/wallet"
)

type fakeTable struct {
	joinCalls int
	lastCmd   table.Command
	sub       table.Subscriber
}

func (f *fakeTable) Send(cmd table.Command) table.CommandResult {
	f.lastCmd = cmd
	if cmd.Kind == table.CommandJoinSeat {
		f.joinCalls++
	}
	return table.CommandResult{}
}
func (f *fakeTable) Bind(playerID string, sub table.Subscriber) { f.sub = sub }
func (f *fakeTable) Unbind(playerID string)                     {}

func signToken(t *testing.T, secret []byte, playerID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PlayerID: playerID})
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestServerRejectsMissingToken(t *testing.T) {
	secret := []byte("test-secret")
	registry := NewRegistry()
	srv := NewServer(NewAuthenticator(secret), registry.Lookup, nil, Config{}, slog.Disabled)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestJoinTableRoutesCommand(t *testing.T) {
	secret := []byte("test-secret")
	registry := NewRegistry()
	ft := &fakeTable{}
	registry.Register("table-1", ft)
	srv := NewServer(NewAuthenticator(secret), registry.Lookup, nil, Config{}, slog.Disabled)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=" + signToken(t, secret, "alice")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Drain connection_ack.
	var ack Envelope
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, TypeConnectionAck, ack.Type)

	join := Envelope{Type: TypeJoinTable, Timestamp: time.Now(), Payload: mustMarshal(JoinTablePayload{TableID: "table-1", Seat: 0, BuyIn: 500})}
	require.NoError(t, conn.WriteJSON(join))

	require.Eventually(t, func() bool { return ft.joinCalls == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "alice", ft.lastCmd.PlayerID)
	require.NotNil(t, ft.sub)
}

func TestJoinTableWithoutFundsIsRejectedAndNotSentToTable(t *testing.T) {
	secret := []byte("test-secret")
	registry := NewRegistry()
	ft := &fakeTable{}
	registry.Register("table-1", ft)
	w := wallet.NewInMemory(map[string]int64{"alice": 100})
	srv := NewServer(NewAuthenticator(secret), registry.Lookup, w, Config{}, slog.Disabled)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "?token=" + signToken(t, secret, "alice")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var ack Envelope
	require.NoError(t, conn.ReadJSON(&ack))

	join := Envelope{Type: TypeJoinTable, Timestamp: time.Now(), CorrelationID: "c1", Payload: mustMarshal(JoinTablePayload{TableID: "table-1", Seat: 0, BuyIn: 500})}
	require.NoError(t, conn.WriteJSON(join))

	var reply Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	require.Equal(t, TypeError, reply.Type)
	require.Equal(t, 0, ft.joinCalls)
	require.Equal(t, int64(100), w.Balance("alice"))
}

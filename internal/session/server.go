package session

import (
	"net/http"
	"strings"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/vctt94/pokercore/internal/wallet"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming HTTP connections to WebSocket sessions,
// authenticating the bearer token before handing off to a Session.
type Server struct {
	auth   *Authenticator
	lookup TableLookup
	wallet wallet.Wallet
	cfg    Config
	log    slog.Logger
}

// NewServer builds a session server around an authenticator and a table
// lookup function (typically a tournament coordinator's or standalone
// table registry's Lookup method). w may be nil to disable buy-in
// reservation (tests, or deployments with no external ledger). cfg is
// forwarded to every Session this server creates.
func NewServer(auth *Authenticator, lookup TableLookup, w wallet.Wallet, cfg Config, log slog.Logger) *Server {
	return &Server{auth: auth, lookup: lookup, wallet: w, cfg: cfg, log: log}
}

// ServeHTTP implements http.Handler for the WebSocket attach endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	playerID, err := s.auth.Verify(token)
	if err != nil {
		http.Error(w, ErrCodeSessionExpired, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("session: upgrade failed for player %s: %v", playerID, err)
		return
	}

	sess := New(conn, playerID, s.lookup, s.wallet, s.cfg, s.log)
	sess.Run()
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

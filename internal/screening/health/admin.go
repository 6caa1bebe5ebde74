package health

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// BlacklistPath is the admin route that blacklists a token in the running
// process.
const BlacklistPath = "/admin/blacklist"

// BlacklistAdder is the part of the blacklist the admin route writes to.
type BlacklistAdder interface {
	Add(ctx context.Context, owner, token common.Address) (bool, error)
}

// BlacklistRequest is the body of a POST to BlacklistPath.
type BlacklistRequest struct {
	Owner string `json:"owner"`
	Token string `json:"token"`
}

// BlacklistResponse reports whether the pair was new.
type BlacklistResponse struct {
	Added bool   `json:"added"`
	Error string `json:"error,omitempty"`
}

// WithAdmin enables the admin routes. Requests must come from a loopback
// address and, when token is set, carry it as a bearer token.
func (s *Server) WithAdmin(blacklist BlacklistAdder, token string) *Server {
	s.mux.HandleFunc(BlacklistPath, func(w http.ResponseWriter, r *http.Request) {
		s.handleBlacklist(w, r, blacklist, token)
	})
	return s
}

func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request, blacklist BlacklistAdder, token string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, BlacklistResponse{Error: "method not allowed"})
		return
	}
	if !isLoopback(r.RemoteAddr) {
		writeJSON(w, http.StatusForbidden, BlacklistResponse{Error: "admin routes are local only"})
		return
	}
	if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte("Bearer "+token)) != 1 {
		writeJSON(w, http.StatusUnauthorized, BlacklistResponse{Error: "invalid admin token"})
		return
	}

	var req BlacklistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BlacklistResponse{Error: "invalid body: " + err.Error()})
		return
	}
	if !common.IsHexAddress(req.Owner) || !common.IsHexAddress(req.Token) {
		writeJSON(w, http.StatusBadRequest, BlacklistResponse{Error: "owner and token must be hex addresses"})
		return
	}

	added, err := blacklist.Add(r.Context(), common.HexToAddress(req.Owner), common.HexToAddress(req.Token))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, BlacklistResponse{Error: err.Error()})
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, BlacklistResponse{Added: added})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

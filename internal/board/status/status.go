// Package status exposes read-only state of the board over HTTP.
package status

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wtask/board/internal/board"
)

// Board - read-only view of the board.
type Board interface {
	Groups() []board.GroupInfo
	Group(id string) (board.GroupInfo, error)
	Users() []string
}

// groupSummary - item of group list.
type groupSummary struct {
	Name    string `json:"name"`
	Alias   int    `json:"alias"`
	Members int    `json:"members"`
	Posts   int    `json:"posts"`
}

type handler struct {
	board  Board
	logger *slog.Logger
}

// NewRouter - builds router with status routes:
//
//	GET /healthz
//	GET /groups
//	GET /groups/{group}
//	GET /users
func NewRouter(b Board, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{board: b, logger: logger}
	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.HandleFunc("/groups", h.groups).Methods(http.MethodGet)
	router.HandleFunc("/groups/{group}", h.group).Methods(http.MethodGet)
	router.HandleFunc("/users", h.users).Methods(http.MethodGet)
	return router
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (h *handler) groups(w http.ResponseWriter, r *http.Request) {
	groups := h.board.Groups()
	list := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		list = append(list, groupSummary{Name: g.Name, Alias: g.Alias, Members: len(g.Members), Posts: g.Posts})
	}
	h.writeJSON(w, list)
}

func (h *handler) group(w http.ResponseWriter, r *http.Request) {
	info, err := h.board.Group(mux.Vars(r)["group"])
	if errors.Is(err, board.ErrGroupNotFound) {
		http.Error(w, "Group does not exist", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("status: group lookup failed", "err", err)
		http.Error(w, "Error retrieving group", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, info)
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.board.Users())
}

func (h *handler) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("status: marshal failed", "err", err)
		http.Error(w, "Error marshalling response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

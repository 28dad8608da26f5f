package handlers

import (
	"alumni-server/middleware"
	"alumni-server/services"
	"alumni-server/utils/errors"
	"net/http"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService       *services.UserService
	connectionService *services.ConnectionService
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewUserHandler(userService *services.UserService, connectionService *services.ConnectionService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		connectionService: connectionService,
	}
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

// SendConnectionRequest asks the user in the path to connect with the caller.
// A "userId" in the body is ignored; the caller is always the token subject.
func (h *UserHandler) SendConnectionRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	if err := h.connectionService.SendRequest(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Connection request sent"})
}

// AcceptConnectionRequest accepts the pending request the user in the path sent to the caller.
func (h *UserHandler) AcceptConnectionRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.ErrUnauthenticated)
		return
	}

	if err := h.connectionService.AcceptRequest(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Connection request accepted"})
}

func (h *UserHandler) GetConnections(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Connections(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.PendingRequests(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}

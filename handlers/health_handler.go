package handlers

import (
	"alumni-server/middleware"
	"alumni-server/services"
	"context"
	"net/http"
	"time"
)

type HealthHandler struct {
	userService *services.UserService
}

func NewHealthHandler(userService *services.UserService) *HealthHandler {
	return &HealthHandler{userService: userService}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.userService.Ping(ctx); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

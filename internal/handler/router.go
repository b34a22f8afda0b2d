package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mannmitra/backend/internal/handler/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/handler/live"
	"github.com/zhouzirui/mannmitra/backend/internal/handler/stream"
	"github.com/zhouzirui/mannmitra/backend/internal/handler/wellness"
	middlewarePkg "github.com/zhouzirui/mannmitra/backend/internal/middleware"
	chatService "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. store may be nil when the
// process only serves chat sessions.
func NewRouter(store wellness.Store, chatSvc *chatService.Service, heartbeat time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				log.Printf("[health] store ping failed: %v", err)
				utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "store": err.Error()})
				return
			}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		// Persistence endpoints used by the gateway client
		if store != nil {
			wellness.New(store).RegisterRoutes(api)
		}

		// Chat sessions
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc, heartbeat).RegisterRoutes(api)
		live.NewWebSocketHandler(chatSvc).RegisterWebSocketRoutes(api)
	})

	return r
}

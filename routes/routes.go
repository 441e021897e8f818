package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/scrim-system/docs" // регистрирует swagger-спецификацию
	"github.com/Dosada05/scrim-system/handlers"
	"github.com/Dosada05/scrim-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Player    *handlers.PlayerHandler
	Room      *handlers.RoomHandler
	BP        *handlers.BPHandler
	Match     *handlers.MatchHandler
	History   *handlers.HistoryHandler
	WebSocket *handlers.WebSocketHandler
	// Metrics отдаёт /metrics, nil отключает эндпоинт.
	Metrics http.Handler
}

func SetupRoutes(router chi.Router, h Handlers, jwtSecret []byte, allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if h.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.Metrics)
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket живёт вне таймаута API: соединение долгое.
	router.Get("/ws/rooms/{roomID}", h.WebSocket.ServeRoom)

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(15 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		r.Route("/players", func(r chi.Router) {
			r.With(authenticate).Post("/me/avatar", h.Player.UploadAvatar)
			r.Get("/{playerID}", h.Player.GetPlayer)
			r.Get("/{playerID}/profile", h.Player.GetProfile)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.Room.ListRooms)
			r.Get("/{roomID}", h.Room.GetRoom)
			r.Get("/{roomID}/match", h.Room.GetCurrentMatch)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/join", h.Room.Join)
				r.Post("/{roomID}/ready", h.Room.SetReady)
				r.Post("/{roomID}/leave", h.Room.Leave)
				r.Post("/{roomID}/match", h.Room.StartMatching)
			})
		})

		r.Route("/bp", func(r chi.Router) {
			r.Get("/{bpID}", h.BP.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/start", h.BP.Start)
				r.Post("/{bpID}/vote", h.BP.Vote)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/{matchID}", h.Match.GetMatch)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Put("/{matchID}/live", h.Match.UpdateLive)
				r.Post("/{matchID}/finish", h.Match.Finish)
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/ranking", h.History.Ranking)
			r.Get("/players/{playerID}", h.History.PlayerHistory)
			r.Get("/players/{playerID}/rating", h.History.RatingHistory)
		})
	})
}

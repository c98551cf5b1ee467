package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roomkit/tictactoe-rooms/internal/entity"
	"github.com/rs/cors"
)

type roomManager interface {
	CreateRoom(ctx context.Context) (*entity.Room, error)
	JoinRoom(ctx context.Context, roomID string) (string, error)
	ApplyMove(ctx context.Context, roomID string, cell int) (*entity.Room, error)
	ResetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type watcher interface {
	Watch(ctx context.Context, roomID string) (<-chan *entity.Room, error)
}

type Server struct {
	logger *slog.Logger
	rooms  roomManager
	viewer watcher

	allowedOrigins []string
}

func New(logger *slog.Logger, rooms roomManager, viewer watcher, allowedOrigins []string) *Server {
	return &Server{
		logger: logger,

		rooms:  rooms,
		viewer: viewer,

		allowedOrigins: allowedOrigins,
	}
}

func (that *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.handlePing)
	mux.HandleFunc("POST /api/room", that.handleCreateRoom)
	mux.HandleFunc("POST /api/room/{roomID}/join", that.handleJoinRoom)
	mux.HandleFunc("POST /api/room/{roomID}/move", that.handleApplyMove)
	mux.HandleFunc("POST /api/room/{roomID}/reset", that.handleResetRoom)
	mux.HandleFunc("GET /api/room/{roomID}/watch", that.handleWatchRoom)

	return cors.New(cors.Options{
		AllowedOrigins: that.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(mux)
}

// Start - serves the API until the context is canceled, then shuts down
// gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	// No WriteTimeout here: the watch route holds its response open for the
	// lifetime of the viewer connection.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

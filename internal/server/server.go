// Package server exposes the app over a local REST API and serves the
// dashboard page.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/replier"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Backend is what the HTTP layer needs from the app
type Backend interface {
	Connect(ctx context.Context, username, password string) (string, error)
	Disconnect() error
	Status() types.Status
	Posts(ctx context.Context) ([]types.Post, error)
	Comments(ctx context.Context, postID string) ([]types.Comment, error)
	GenerateReply(ctx context.Context, req replier.Request) (string, error)
	GenerateReplies(ctx context.Context, req replier.BatchRequest) ([]replier.BatchReply, error)
	PostReply(ctx context.Context, postURL, text, commentID string) (types.Reply, error)
	Replies(limit int) ([]types.Reply, error)
	ReloadConfig() error
}

const shutdownTimeout = 10 * time.Second

// Server is the dashboard HTTP server
type Server struct {
	addr    string
	router  *mux.Router
	backend Backend
	logger  *zap.Logger
}

// New creates a server listening on addr
func New(addr string, backend Backend, logger *zap.Logger) *Server {
	s := &Server{
		addr:    addr,
		router:  mux.NewRouter(),
		backend: backend,
		logger:  logger.Named("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestID, s.accessLog)

	s.router.HandleFunc("/", s.handleDashboard).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")

	s.router.HandleFunc("/start-bot", s.handleStartBot).Methods("POST")
	s.router.HandleFunc("/stop-bot", s.handleStopBot).Methods("POST")

	s.router.HandleFunc("/get-posts", s.handleGetPosts).Methods("GET")
	s.router.HandleFunc("/get-comments/{postId}", s.handleGetComments).Methods("GET")

	s.router.HandleFunc("/generate-reply", s.handleGenerateReply).Methods("POST")
	s.router.HandleFunc("/generate-replies", s.handleGenerateReplies).Methods("POST")
	s.router.HandleFunc("/post-reply", s.handlePostReply).Methods("POST")
	s.router.HandleFunc("/replies", s.handleReplies).Methods("GET")

	s.router.HandleFunc("/reload-config", s.handleReloadConfig).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Dashboard listening", zap.String("url", "http://"+s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down dashboard")
	return srv.Shutdown(shutdownCtx)
}

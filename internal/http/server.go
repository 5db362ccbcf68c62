package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ServerConfigFromEnv keeps the write timeout above the storage call timeout
// so a slow publish still gets its answer out.
func ServerConfigFromEnv() ServerConfig {
	return ServerConfig{
		Addr:         envutil.String("HTTP_ADDR", ":8080"),
		ReadTimeout:  envutil.Seconds("HTTP_READ_TIMEOUT_SECONDS", 30),
		WriteTimeout: envutil.Seconds("HTTP_WRITE_TIMEOUT_SECONDS", 120),
	}
}

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg RouterConfig, sc ServerConfig) *Server {
	engine := NewRouter(cfg)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Addr:         sc.Addr,
			Handler:      engine,
			ReadTimeout:  sc.ReadTimeout,
			WriteTimeout: sc.WriteTimeout,
		},
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

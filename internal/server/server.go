package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ryabkov82/dataset-merger/internal/config"
)

// Server - HTTP-сервер объединения таблиц: загрузка двух файлов,
// подбор ключей, объединение и выгрузка результата.
type Server struct {
	cfg      *config.Config
	log      *charmlog.Logger
	router   *gin.Engine
	sessions *sessionStore
}

// New собирает сервер с маршрутами и промежуточными обработчиками.
func New(cfg *config.Config, log *charmlog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:      cfg,
		log:      log,
		router:   gin.New(),
		sessions: newSessionStore(cfg.Server.MaxSessions, cfg.Server.SessionTTL),
	}
	s.router.Use(gin.Recovery(), s.loggerMiddleware(), s.corsMiddleware())
	s.registerRoutes()
	return s
}

// Handler возвращает корневой http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run запускает сервер и блокируется до отмены контекста, после чего
// корректно завершает обслуживание запросов.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("сервер запущен", "addr", fmt.Sprintf("http://%s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка запуска сервера: %v", err)
	case <-ctx.Done():
	}

	s.log.Info("остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %v", err)
	}
	s.log.Info("сервер остановлен")
	return nil
}

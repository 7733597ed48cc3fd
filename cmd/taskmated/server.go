package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
	"github.com/fyrsmithlabs/taskmated/internal/config"
	"github.com/fyrsmithlabs/taskmated/internal/memory"
	"github.com/fyrsmithlabs/taskmated/internal/orchestrator"
)

// server is the HTTP front of the orchestrator.
type server struct {
	cfg     *config.Config
	echo    *echo.Echo
	orch    *orchestrator.Orchestrator
	gateway *ai.Gateway
	logger  *zap.Logger
}

func newServer(cfg *config.Config, orch *orchestrator.Orchestrator, gateway *ai.Gateway, logger *zap.Logger) *server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &server{cfg: cfg, echo: e, orch: orch, gateway: gateway, logger: logger}
	s.registerRoutes()
	return s
}

func (s *server) registerRoutes() {
	s.echo.POST("/tasks", s.handleCreateTask)
	s.echo.GET("/tasks", s.handleListTasks)
	s.echo.GET("/tasks/:id", s.handleGetTask)
	s.echo.POST("/tasks/:id/retry", s.handleRetryTask)
	s.echo.POST("/tasks/retry-failed", s.handleRetryFailed)
	s.echo.DELETE("/tasks/completed", s.handleClearCompleted)
	s.echo.GET("/agents/status", s.handleAgentStatus)
	s.echo.GET("/memory/search", s.handleMemorySearch)
	s.echo.GET("/usage", s.handleUsage)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

type createTaskRequest struct {
	Problem string `json:"problem"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleCreateTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	id, err := s.orch.CreateTaskFromProblem(c.Request().Context(), req.Problem)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyProblem) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "problem statement is required"})
		}
		s.logger.Error("task creation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to create task"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"taskId": id})
}

func (s *server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tasks": s.orch.GetAllTasks()})
}

func (s *server) handleGetTask(c echo.Context) error {
	task, err := s.orch.GetTask(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	}
	return c.JSON(http.StatusOK, task)
}

func (s *server) handleRetryTask(c echo.Context) error {
	err := s.orch.RetryTask(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, orchestrator.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	case errors.Is(err, orchestrator.ErrNotRetryable):
		return c.JSON(http.StatusConflict, errorResponse{Error: "task is not in failed state"})
	default:
		s.logger.Error("retry failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to retry task"})
	}
}

func (s *server) handleRetryFailed(c echo.Context) error {
	count := s.orch.RetryAllFailed(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int{"retriedCount": count})
}

func (s *server) handleClearCompleted(c echo.Context) error {
	count := s.orch.ClearCompleted()
	return c.JSON(http.StatusOK, map[string]int{"clearedCount": count})
}

func (s *server) handleAgentStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.AgentStatus(c.Request().Context()))
}

func (s *server) handleMemorySearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}
	results, err := s.orch.SearchMemory(c.Request().Context(), query, limit)
	if err != nil {
		s.logger.Error("memory search failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "memory search failed"})
	}
	if results == nil {
		results = []memory.SearchResult{}
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleUsage(c echo.Context) error {
	if s.gateway == nil {
		return c.JSON(http.StatusOK, ai.UsageSnapshot{})
	}
	return c.JSON(http.StatusOK, s.gateway.Usage().Snapshot())
}

func (s *server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "taskmated"})
}

// Start serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout, err := time.ParseDuration(s.cfg.Server.ShutdownTimeout)
		if err != nil {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.orch.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("orchestrator shutdown incomplete", zap.Error(err))
		}
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

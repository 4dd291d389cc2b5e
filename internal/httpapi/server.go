// Package httpapi exposes the session orchestrator over a small JSON API.
package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/park285/llmchess-duel/internal/obslog"
	"github.com/park285/llmchess-duel/internal/session"
	"github.com/park285/llmchess-duel/pkg/sessiondto"
)

const (
	codeInvalidRequest  = "INVALID_REQUEST"
	codeIllegalMove     = "ILLEGAL_MOVE"
	codeTurnConflict    = "TURN_CONFLICT"
	codeGameOver        = "GAME_OVER"
	codeSessionNotFound = "SESSION_NOT_FOUND"
	codeInternalError   = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Server struct {
	registry *session.Registry
	validate *validator.Validate
	logger   *zap.Logger
}

func NewServer(registry *session.Registry) *Server {
	return &Server{
		registry: registry,
		validate: validator.New(),
		logger:   obslog.L().Named("httpapi"),
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: s.errorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", s.health)

	api := app.Group("/api")
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Post("/sessions/:id/moves", s.submitMove)
	api.Post("/sessions/:id/chat", s.sendChat)
	api.Put("/sessions/:id/difficulty", s.setDifficulty)
	api.Post("/sessions/:id/new-game", s.newGame)
	api.Post("/sessions/:id/resign", s.resign)

	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	resp := ErrorResponse{Error: "internal server error", Code: codeInternalError}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		resp.Error = fiberErr.Message
		switch code {
		case fiber.StatusNotFound:
			resp.Code = codeSessionNotFound
		case fiber.StatusInternalServerError:
			resp.Code = codeInternalError
		default:
			resp.Code = codeInvalidRequest
		}
	}
	if code >= 500 {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(resp)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"sessions": s.registry.Len(),
		"time":     time.Now().Unix(),
	})
}

func (s *Server) createSession(c *fiber.Ctx) error {
	sess, err := s.registry.Create()
	if err != nil {
		s.logger.Error("session creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to create session",
			Code:  codeInternalError,
		})
	}
	s.logger.Info("session created", zap.String("session_id", sess.ID()))
	return c.Status(fiber.StatusCreated).JSON(toSnapshot(sess.Snapshot("")))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(toSnapshot(sess.Snapshot(c.Query("square"))))
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if _, err := s.lookup(c); err != nil {
		return err
	}
	s.registry.Remove(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) submitMove(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req sessiondto.MoveRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	outcome, err := sess.SubmitHumanMove(toRulesMove(req))
	if err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(sessiondto.MoveResult{
		Snapshot:  toSnapshot(outcome.Snapshot),
		PlayerSAN: outcome.SAN,
	})
}

func (s *Server) sendChat(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req sessiondto.ChatRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	reply, hostile, err := sess.SendChat(c.Context(), req.Text)
	if err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(sessiondto.ChatResponse{Reply: reply, Hostile: hostile})
}

func (s *Server) setDifficulty(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req sessiondto.DifficultyRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	if err := sess.SetDifficulty(req.Rating); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(toSnapshot(sess.Snapshot("")))
}

func (s *Server) newGame(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	if err := sess.NewGame(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(toSnapshot(sess.Snapshot("")))
}

func (s *Server) resign(c *fiber.Ctx) error {
	sess, err := s.lookup(c)
	if err != nil {
		return err
	}
	if err := sess.Resign(); err != nil {
		return s.sessionError(c, err)
	}
	return c.JSON(toSnapshot(sess.Snapshot("")))
}

func (s *Server) lookup(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.registry.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return sess, nil
}

func (s *Server) parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// sessionError maps orchestrator sentinels to HTTP statuses. Illegal moves
// are a semantic rejection of a well-formed request; turn and lifecycle
// conflicts are state conflicts.
func (s *Server) sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrIllegalMove):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: err.Error(), Code: codeIllegalMove,
		})
	case errors.Is(err, session.ErrTurnNotYours), errors.Is(err, session.ErrAiTurnInFlight):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: err.Error(), Code: codeTurnConflict,
		})
	case errors.Is(err, session.ErrGameOver):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: err.Error(), Code: codeGameOver,
		})
	case errors.Is(err, session.ErrInvalidDifficulty):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(), Code: codeInvalidRequest,
		})
	default:
		s.logger.Error("session operation failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal server error", Code: codeInternalError,
		})
	}
}

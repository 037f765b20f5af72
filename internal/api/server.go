package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/auth"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/config"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/db"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/engine"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/ingest"
	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	Scanner     *engine.Scanner
	Registry    *ingest.Registry
	Signal      *db.AlertSignal // optional
}

func NewServer(pool *pgxpool.Pool, cfg *config.Config, scanner *engine.Scanner, registry *ingest.Registry, signal *db.AlertSignal) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		DB:          pool,
		Store:       db.NewStore(pool),
		AuthService: auth.NewService(pool),
		Echo:        e,
		Scanner:     scanner,
		Registry:    registry,
		Signal:      signal,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/sources", s.handleListSources)
	api.GET("/stats", s.handleStats)

	hunts := api.Group("/hunts")
	hunts.Use(auth.Middleware)
	hunts.POST("", s.handleCreateHunt)
	hunts.GET("", s.handleListHunts)
	hunts.GET("/:id", s.handleGetHunt)
	hunts.PATCH("/:id", s.handleUpdateHunt)
	hunts.POST("/:id/scan", s.handleRunScan)
	hunts.GET("/:id/matches", s.handleListMatches)
	hunts.GET("/:id/alerts", s.handleListAlerts)
	hunts.GET("/:id/scans", s.handleListScans)

	alerts := api.Group("/alerts")
	alerts.Use(auth.Middleware)
	alerts.POST("/:id/ack", s.handleAckAlert)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.DB.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Email == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and a password of at least 8 characters are required"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrDealerExists) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// handleListSources exposes the source registry so the hunt form can
// offer valid enabled_sources values.
func (s *Server) handleListSources(c echo.Context) error {
	type sourceInfo struct {
		Name   string `json:"name"`
		Tier   string `json:"tier"`
		Active bool   `json:"active"`
	}
	out := make([]sourceInfo, 0, len(s.Registry.Sources))
	for _, src := range s.Registry.Sources {
		out = append(out, sourceInfo{Name: src.Name, Tier: src.Tier, Active: src.Active})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.Store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// --- Hunts ---

func (s *Server) handleCreateHunt(c echo.Context) error {
	dealerID, err := auth.GetDealerIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	var hunt models.Hunt
	if err := c.Bind(&hunt); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	hunt.DealerID = dealerID

	// Reject configs that would fail every scan before storing them.
	if err := engine.SnapshotFromHunt(hunt).Validate(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	created, err := s.Store.CreateHunt(c.Request().Context(), hunt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListHunts(c echo.Context) error {
	dealerID, err := auth.GetDealerIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	hunts, err := s.Store.ListHunts(c.Request().Context(), dealerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, hunts)
}

func (s *Server) handleGetHunt(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}

	hunt, err := s.Store.GetHunt(c.Request().Context(), huntID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "hunt not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, hunt)
}

// handleUpdateHunt applies a full-document edit. The store decides
// whether the edit touched classification criteria and bumps the
// criteria version (staling old matches) in the same transaction.
func (s *Server) handleUpdateHunt(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}
	dealerID, _ := auth.GetDealerIDFromContext(c)

	var hunt models.Hunt
	if err := c.Bind(&hunt); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	hunt.ID = huntID
	hunt.DealerID = dealerID

	if err := engine.SnapshotFromHunt(hunt).Validate(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	updated, err := s.Store.UpdateHunt(c.Request().Context(), hunt)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "hunt not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, updated)
}

// handleRunScan triggers an on-demand scan and returns its summary.
func (s *Server) handleRunScan(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}

	summary, err := s.Scanner.Run(c.Request().Context(), huntID)
	switch {
	case errors.Is(err, engine.ErrScanInProgress):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidHuntConfig):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrNoSources):
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":    err.Error(),
			"warnings": summary.Warnings,
		})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if s.Signal != nil {
		s.Signal.NewAlerts(c.Request().Context(), huntID, summary.AlertsEmitted)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListMatches(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}

	params := db.MatchListParams{
		HuntID: huntID,
		Tab:    db.MatchTab(c.QueryParam("tab")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}

	matches, err := s.Store.ListMatches(c.Request().Context(), params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) handleListAlerts(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}

	unackedOnly := c.QueryParam("unacked") == "true"
	alerts, err := s.Store.ListAlerts(c.Request().Context(), huntID, unackedOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, alerts)
}

func (s *Server) handleListScans(c echo.Context) error {
	huntID, err := s.ownedHuntID(c)
	if err != nil {
		return err
	}

	scans, err := s.Store.ListScans(c.Request().Context(), huntID, intQuery(c, "limit", 20))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, scans)
}

func (s *Server) handleAckAlert(c echo.Context) error {
	dealerID, err := auth.GetDealerIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
	}

	if err := s.Store.AcknowledgeAlert(c.Request().Context(), alertID, dealerID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "alert not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// ownedHuntID parses :id and verifies the authenticated dealer owns the
// hunt. Returns an echo HTTP error ready to bubble up on failure.
func (s *Server) ownedHuntID(c echo.Context) (uuid.UUID, error) {
	dealerID, err := auth.GetDealerIDFromContext(c)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	huntID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid hunt id")
	}

	owned, err := s.Store.HuntOwnedBy(c.Request().Context(), huntID, dealerID)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !owned {
		// 404 rather than 403: don't leak which hunt IDs exist.
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "hunt not found")
	}

	return huntID, nil
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// Start runs the HTTP server.
func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

const familyKey = "family"

// requireFamily rejects /api requests without a usable X-Family-Name header.
// Clients treat the resulting 400 as a logout.
func (s *Server) requireFamily(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		family, err := home.NormalizeFamily(c.Request().Header.Get(HeaderFamilyName))
		if err != nil {
			ctx := c.Request().Context()
			logging.FromContext(ctx).Debug(ctx, "rejected family header", zap.Error(err))
			return err
		}
		c.Set(familyKey, family)
		c.SetRequest(c.Request().WithContext(logging.WithFamily(c.Request().Context(), family)))
		return next(c)
	}
}

func familyOf(c echo.Context) string {
	family, _ := c.Get(familyKey).(string)
	return family
}

// handleHealth reports liveness and, when configured, store reachability.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request().Context()); err != nil {
			ctx := c.Request().Context()
			logging.FromContext(ctx).Warn(ctx, "health check: store unreachable", zap.Error(err))
			resp.Status = "degraded"
			resp.Store = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Store = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c echo.Context) error {
	st, err := s.home.Status(c.Request().Context(), familyOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleToggle(c echo.Context) error {
	var req ToggleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	st, err := s.home.Toggle(c.Request().Context(), familyOf(c), req.Device)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToggleResponse{Status: "success", Lights: st.Lights})
}

func (s *Server) handleMode(c echo.Context) error {
	var req ModeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	st, err := s.home.SetMode(c.Request().Context(), familyOf(c), req.Mode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ModeResponse{Status: "success", Mode: string(st.Mode)})
}

func (s *Server) handleClimate(c echo.Context) error {
	var req ClimateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.Temperature == nil || req.Humidity == nil {
		return badRequest("temperature and humidity are required")
	}
	st, err := s.home.ReportClimate(c.Request().Context(), familyOf(c), *req.Temperature, *req.Humidity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleListItems(c echo.Context) error {
	items, err := s.home.ListItems(c.Request().Context(), familyOf(c), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleLowStock(c echo.Context) error {
	threshold := -1.0
	if raw := c.QueryParam("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return badRequest("threshold must be a non-negative number")
		}
		threshold = v
	}
	items, err := s.home.LowStockItems(c.Request().Context(), familyOf(c), threshold)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleAddItem(c echo.Context) error {
	var in home.ItemInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	item, err := s.home.AddItem(c.Request().Context(), familyOf(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(c echo.Context) error {
	var patch home.ItemPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest("invalid request body")
	}
	item, err := s.home.UpdateItem(c.Request().Context(), familyOf(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteItem(c echo.Context) error {
	if err := s.home.DeleteItem(c.Request().Context(), familyOf(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListNotes(c echo.Context) error {
	notes, err := s.home.ListNotes(c.Request().Context(), familyOf(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) handleAddNote(c echo.Context) error {
	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	note, err := s.home.AddNote(c.Request().Context(), familyOf(c), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	if err := s.home.DeleteNote(c.Request().Context(), familyOf(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

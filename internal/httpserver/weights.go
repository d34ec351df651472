package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pps-segura/pesotrack/internal/middleware"
	"github.com/pps-segura/pesotrack/internal/service"
)

type WeightsHTTP struct {
	Svc *service.WeightService
}

type profileRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	BirthDate string  `json:"birth_date"`
	HeightM   float64 `json:"height_m"`
}

type weightRequest struct {
	WeightKg   float64 `json:"weight_kg"`
	RecordedAt string  `json:"recorded_at"`
}

func (h *WeightsHTTP) GetProfile(c echo.Context) error {
	profile, err := h.Svc.Profile(c.Request().Context(), middleware.AccountIDFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not set")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":    profile.AccountID,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"birth_date": profile.BirthDate.Format("2006-01-02"),
		"height_m":   profile.HeightM,
	})
}

func (h *WeightsHTTP) PutProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	profile, err := h.Svc.SaveProfile(c.Request().Context(), middleware.AccountIDFrom(c),
		req.FirstName, req.LastName, req.BirthDate, req.HeightM)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":    profile.AccountID,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"birth_date": profile.BirthDate.Format("2006-01-02"),
		"height_m":   profile.HeightM,
	})
}

func (h *WeightsHTTP) AddWeight(c echo.Context) error {
	var req weightRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var recordedAt time.Time
	if req.RecordedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid recorded_at")
		}
		recordedAt = parsed
	}

	entry, err := h.Svc.AddWeight(c.Request().Context(), middleware.AccountIDFrom(c), req.WeightKg, recordedAt)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *WeightsHTTP) History(c echo.Context) error {
	entries, err := h.Svc.History(c.Request().Context(), middleware.AccountIDFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"weights": entries})
}

func (h *WeightsHTTP) CurrentBMI(c echo.Context) error {
	result, err := h.Svc.CurrentBMI(c.Request().Context(), middleware.AccountIDFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no data recorded yet")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"weight_kg":   result.WeightKg,
		"height_m":    result.HeightM,
		"bmi":         result.BMI,
		"category":    result.Category,
		"recorded_at": result.RecordedAt,
	})
}

func (h *WeightsHTTP) Stats(c echo.Context) error {
	stats, err := h.Svc.Stats(c.Request().Context(), middleware.AccountIDFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":  stats.Count,
		"min_kg": stats.MinKg,
		"max_kg": stats.MaxKg,
	})
}

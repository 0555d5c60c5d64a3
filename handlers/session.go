package handlers

import (
	"errors"
	"net/http"
	"time"

	archiveRepo "orchid/database/repository/archive"
	"orchid/middleware"
	"orchid/models"
	"orchid/services/reminder"
	"orchid/services/session"
	"orchid/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler exposes the session tracker over HTTP.
type SessionHandler struct {
	Tracker   session.TrackerService
	Reminders reminder.Service
	Archive   archiveRepo.SessionArchiveRepository
	Logger    *zap.Logger
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(tracker session.TrackerService, reminders reminder.Service, archive archiveRepo.SessionArchiveRepository, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		Tracker:   tracker,
		Reminders: reminders,
		Archive:   archive,
		Logger:    logger,
	}
}

// startSessionInput mirrors the booking API's "start booking" response.
type startSessionInput struct {
	ID        string                 `json:"id" binding:"required"`
	Status    models.SessionStatus   `json:"status"`
	StartTime time.Time              `json:"start_time" binding:"required"`
	Duration  int                    `json:"duration" binding:"required,gt=0"`
	Booking   models.BookingSnapshot `json:"booking"`
}

// StartSession records the server-confirmed booking start for the
// authenticated technician and schedules the end-of-session reminder.
func (h *SessionHandler) StartSession(c *gin.Context) {
	ktvID := c.GetString(middleware.ContextKTVID)

	var input startSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	rec := models.ActiveSession{
		ID:              input.ID,
		Status:          input.Status,
		StartTime:       input.StartTime,
		DurationMinutes: input.Duration,
		Booking:         input.Booking,
	}

	persisted := h.Tracker.SetActiveSession(c.Request.Context(), ktvID, rec)

	// A session that is already over gets no reminder.
	if h.Reminders != nil && rec.EndTime().After(time.Now()) {
		taskID, err := h.Reminders.ScheduleEndReminder(c.Request.Context(), ktvID, rec)
		if err != nil {
			h.Logger.Warn("failed to schedule end-of-session reminder",
				zap.String("ktvId", ktvID),
				zap.String("bookingId", rec.ID),
				zap.Error(err),
			)
		} else {
			h.Tracker.SetReminderTask(c.Request.Context(), ktvID, &taskID)
		}
	}

	snap, err := h.Tracker.Snapshot(c.Request.Context(), ktvID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read session state", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   snap,
		"persisted": persisted,
	})
}

// GetSession returns the technician's current tracked state. The first touch
// hydrates from durable storage so a restart never misreports Idle.
func (h *SessionHandler) GetSession(c *gin.Context) {
	ktvID := c.GetString(middleware.ContextKTVID)

	snap, err := h.Tracker.Snapshot(c.Request.Context(), ktvID)
	if errors.Is(err, session.ErrNotHydrated) {
		snap = h.Tracker.Hydrate(c.Request.Context(), ktvID)
	} else if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read session state", err.Error())
		return
	}

	c.JSON(http.StatusOK, snap)
}

type clearSessionInput struct {
	Reason models.ClearReason `json:"reason" binding:"required"`
}

// ClearSession ends the tracked session for the given reason.
func (h *SessionHandler) ClearSession(c *gin.Context) {
	ktvID := c.GetString(middleware.ContextKTVID)

	var input clearSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Tracker.Clear(c.Request.Context(), ktvID, input.Reason); err != nil {
		if errors.Is(err, session.ErrInvalidReason) {
			utils.JSONError(c, http.StatusBadRequest, "invalid clear reason", string(input.Reason))
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to clear session", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// GetHistory lists the technician's archived sessions, newest first.
func (h *SessionHandler) GetHistory(c *gin.Context) {
	ktvID := c.GetString(middleware.ContextKTVID)

	if h.Archive == nil {
		c.JSON(http.StatusOK, gin.H{"sessions": []models.ArchivedSession{}})
		return
	}

	records, err := h.Archive.GetByKTVID(c.Request.Context(), ktvID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load session history", err.Error())
		return
	}
	if records == nil {
		records = []models.ArchivedSession{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

// HealthHandler reports the latest stored health snapshot.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/hawkalert/internal/conditions"
	"github.com/mr-karan/hawkalert/internal/core"
	"github.com/mr-karan/hawkalert/internal/hawkular"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// handleSyncAlert pushes an alert operation to Hawkular.
// POST /api/v1/alerts/sync
func (s *Server) handleSyncAlert(c *fiber.Ctx) error {
	var req models.SyncRequest
	if err := c.BodyParser(&req); err != nil {
		if errors.Is(err, models.ErrUnknownOperation) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	result, err := core.SyncAlert(c.Context(), core.SyncOptions{
		Synchronizer:    s.sync,
		Journal:         s.journal,
		JournalLimit:    s.config.SQLite.JournalLimit,
		Notifier:        s.notifier,
		NotifyOnSuccess: s.config.Notify.OnSuccess,
		Logger:          s.log,
	}, req.Operation, &req.Alert)
	if err != nil {
		return s.sendSyncError(c, err)
	}
	return SendSuccess(c, fiber.StatusOK, result)
}

// handlePreviewAlert returns the trigger and conditions an alert translates to.
// POST /api/v1/alerts/preview
func (s *Server) handlePreviewAlert(c *fiber.Ctx) error {
	var req models.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	result, err := core.PreviewAlert(s.sync, &req.Alert)
	if err != nil {
		return s.sendSyncError(c, err)
	}
	return SendSuccess(c, fiber.StatusOK, result)
}

// handleResolveTriggerID resolves the remote trigger id of an alert.
// GET /api/v1/alerts/:alertID/trigger-id
func (s *Server) handleResolveTriggerID(c *fiber.Ctx) error {
	alertID, err := parseAlertID(c)
	if err != nil {
		return err
	}

	res, err := core.ResolveAlert(c.Context(), s.sync, alertID)
	if err != nil {
		return s.sendSyncError(c, err)
	}
	return SendSuccess(c, fiber.StatusOK, res)
}

// handleListJournal returns the recent sync journal of an alert.
// GET /api/v1/alerts/:alertID/journal?limit=
func (s *Server) handleListJournal(c *fiber.Ctx) error {
	alertID, err := parseAlertID(c)
	if err != nil {
		return err
	}
	if s.journal == nil {
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "sync journal is disabled", models.ConfigurationErrorType)
	}

	limit := c.QueryInt("limit", models.DefaultJournalLimit)
	if limit <= 0 || limit > 1000 {
		return SendErrorWithType(c, fiber.StatusBadRequest, "limit must be between 1 and 1000", models.ValidationErrorType)
	}

	entries, err := core.ListJournal(c.Context(), s.journal, alertID, limit)
	if err != nil {
		s.log.Error("failed to list sync journal", "alert_id", alertID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list sync journal", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, entries)
}

func parseAlertID(c *fiber.Ctx) (models.AlertID, error) {
	id, err := strconv.ParseInt(c.Params("alertID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid alert ID")
	}
	return models.AlertID(id), nil
}

// sendSyncError maps sync failures to HTTP statuses.
func (s *Server) sendSyncError(c *fiber.Ctx, err error) error {
	var apiErr *hawkular.APIError
	switch {
	case errors.Is(err, models.ErrUnknownOperation),
		errors.Is(err, core.ErrInvalidAlertDefinition),
		errors.Is(err, triggers.ErrInvalidAlertID),
		errors.Is(err, conditions.ErrUnknownEvalMethod),
		errors.Is(err, conditions.ErrUnknownOperator),
		errors.Is(err, conditions.ErrMissingOption),
		errors.Is(err, conditions.ErrInvalidOption):
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	case errors.Is(err, conditions.ErrMetricNotConfigured):
		return SendErrorWithType(c, fiber.StatusInternalServerError, err.Error(), models.ConfigurationErrorType)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), models.NotFoundErrorType)
	default:
		return SendErrorWithType(c, fiber.StatusBadGateway, err.Error(), models.BackendErrorType)
	}
}

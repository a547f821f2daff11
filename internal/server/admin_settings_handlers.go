package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/hawkalert/internal/config"
	"github.com/mr-karan/hawkalert/internal/sqlite"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// SystemSettingResponse represents a runtime setting in API responses.
type SystemSettingResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
	Description string `json:"description,omitempty"`
	Stored      bool   `json:"stored"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// UpdateSettingRequest represents a request to update a setting.
type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// handleListSettings returns every runtime setting, stored or not.
// GET /api/v1/settings
func (s *Server) handleListSettings(c *fiber.Ctx) error {
	if s.settings == nil {
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "settings store is disabled", models.ConfigurationErrorType)
	}
	stored, err := s.settings.ListSettings(c.Context())
	if err != nil {
		s.log.Error("failed to list settings", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "failed to retrieve settings")
	}
	byKey := make(map[string]sqlite.Setting, len(stored))
	for _, st := range stored {
		byKey[st.Key] = st
	}

	resp := make([]SystemSettingResponse, 0, len(config.RuntimeSettings))
	for _, rs := range config.RuntimeSettings {
		item := SystemSettingResponse{Key: rs.Key, ValueType: rs.ValueType, Description: rs.Description}
		if st, ok := byKey[rs.Key]; ok {
			item.Value = st.Value
			item.Stored = true
			item.UpdatedAt = st.UpdatedAt
		} else {
			item.Value, _ = s.config.RuntimeValue(rs.Key)
		}
		resp = append(resp, item)
	}
	return SendSuccess(c, fiber.StatusOK, resp)
}

// handleUpdateSetting stores a runtime setting. Values apply on the next start.
// PUT /api/v1/settings/:key
func (s *Server) handleUpdateSetting(c *fiber.Ctx) error {
	if s.settings == nil {
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "settings store is disabled", models.ConfigurationErrorType)
	}
	rs, ok := lookupRuntimeSetting(c.Params("key"))
	if !ok {
		return SendErrorWithType(c, fiber.StatusNotFound, "unknown setting", models.NotFoundErrorType)
	}

	var req UpdateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	value := strings.TrimSpace(req.Value)
	if err := validateSettingValue(rs, value); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}

	if err := s.settings.UpsertSetting(c.Context(), rs.Key, value, rs.ValueType, rs.Description); err != nil {
		s.log.Error("failed to update setting", "key", rs.Key, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "failed to update setting")
	}
	s.log.Info("runtime setting updated", "key", rs.Key)
	return SendSuccess(c, fiber.StatusOK, SystemSettingResponse{
		Key:         rs.Key,
		Value:       value,
		ValueType:   rs.ValueType,
		Description: rs.Description,
		Stored:      true,
	})
}

// handleDeleteSetting removes a stored setting so the config file value applies again.
// DELETE /api/v1/settings/:key
func (s *Server) handleDeleteSetting(c *fiber.Ctx) error {
	if s.settings == nil {
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "settings store is disabled", models.ConfigurationErrorType)
	}
	rs, ok := lookupRuntimeSetting(c.Params("key"))
	if !ok {
		return SendErrorWithType(c, fiber.StatusNotFound, "unknown setting", models.NotFoundErrorType)
	}
	if err := s.settings.DeleteSetting(c.Context(), rs.Key); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "setting is not stored", models.NotFoundErrorType)
		}
		s.log.Error("failed to delete setting", "key", rs.Key, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "failed to delete setting")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"key": rs.Key, "deleted": true})
}

func lookupRuntimeSetting(key string) (config.RuntimeSetting, bool) {
	for _, rs := range config.RuntimeSettings {
		if rs.Key == key {
			return rs, true
		}
	}
	return config.RuntimeSetting{}, false
}

func validateSettingValue(rs config.RuntimeSetting, value string) error {
	switch rs.ValueType {
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration", rs.Key)
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false", rs.Key)
		}
	case "number":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", rs.Key)
		}
	default:
		if value == "" {
			return fmt.Errorf("%s must not be empty", rs.Key)
		}
		if rs.Key == "logging.level" {
			switch value {
			case "debug", "info", "warn", "error":
			default:
				return fmt.Errorf("%s must be one of debug, info, warn, error", rs.Key)
			}
		}
	}
	return nil
}

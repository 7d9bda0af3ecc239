package handlers

import (
	"net/http"

	"bridge-backend/internal/models"
	"bridge-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminConfigHandler serves the protected config store API.
type AdminConfigHandler struct {
	configRepo repository.ConfigRepository
	logger     *logrus.Logger
}

// SetConfigRequest is the admin config update body.
type SetConfigRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// NewAdminConfigHandler creates the admin config handler.
func NewAdminConfigHandler(configRepo repository.ConfigRepository, logger *logrus.Logger) *AdminConfigHandler {
	return &AdminConfigHandler{configRepo: configRepo, logger: logger}
}

// knownConfigKeys are the store keys the bridge reads at runtime. Writes to
// other keys are rejected so a typo cannot silently create a dead entry.
var knownConfigKeys = map[string]bool{
	models.ProcessedTxDigestKey: true,
	models.LedgerIDKey:          true,
	models.LocalMgmtIDKey:       true,
	models.SuiPackageIDKey:      true,
	models.SuiModuleIDKey:       true,
	models.APIURLKey:            true,
	models.TxDigestURLKey:       true,
	models.IsLocalKey:           true,
	models.MinterTokenKey:       true,
}

// SetConfig updates one config store entry and returns the previous value.
// POST /api/v1/admin/config
func (h *AdminConfigHandler) SetConfig(c *gin.Context) {
	var req SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if !knownConfigKeys[req.Key] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unknown config key",
			"key":     req.Key,
		})
		return
	}

	previous, hadPrevious, err := h.configRepo.Set(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		h.logger.WithError(err).WithField("key", req.Key).Error("failed to update config")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to update config",
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"key":          req.Key,
		"had_previous": hadPrevious,
	}).Info("config store entry updated")

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"key":            req.Key,
		"previous_value": previous,
		"had_previous":   hadPrevious,
	})
}

// GetConfig reads one config store entry.
// GET /api/v1/admin/config/:key
func (h *AdminConfigHandler) GetConfig(c *gin.Context) {
	key := c.Param("key")
	if !knownConfigKeys[key] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unknown config key",
			"key":     key,
		})
		return
	}

	value, found, err := h.configRepo.Get(c.Request.Context(), key)
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Error("failed to read config")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to read config",
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "config key not set",
			"key":     key,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
		"value":   value,
	})
}

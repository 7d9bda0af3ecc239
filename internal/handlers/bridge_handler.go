package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/middleware"
	"bridge-backend/internal/repository"
	"bridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BridgeHandler serves the public bridge API: withdrawals, transaction
// listings and the bridge public key.
type BridgeHandler struct {
	withdrawService *services.WithdrawService
	txRepo          repository.TransactionRepository
	signer          services.Signer
	logger          *logrus.Logger
}

// WithdrawRequest is the withdraw API request body.
type WithdrawRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
}

// NewBridgeHandler creates the bridge API handler.
func NewBridgeHandler(
	withdrawService *services.WithdrawService,
	txRepo repository.TransactionRepository,
	signer services.Signer,
	logger *logrus.Logger,
) *BridgeHandler {
	return &BridgeHandler{
		withdrawService: withdrawService,
		txRepo:          txRepo,
		signer:          signer,
		logger:          logger,
	}
}

// Withdraw runs the withdrawal pipeline for the authenticated caller.
// POST /api/v1/withdraw
func (h *BridgeHandler) Withdraw(c *gin.Context) {
	caller := c.GetString(middleware.CallerPrincipalKey)
	if caller == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Authentication required",
		})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	digest, err := h.withdrawService.Withdraw(c.Request.Context(), caller, req.Amount, req.Recipient)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, bridgeerr.ErrInsufficientBalance):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, bridgeerr.ErrLedger):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, bridgeerr.ErrConfigMissing):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"tx_digest": digest,
	})
}

// ListMinted returns the mint ledger in block index order.
// GET /api/v1/transactions/minted
func (h *BridgeHandler) ListMinted(c *gin.Context) {
	records, err := h.txRepo.ListMinted(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list minted transactions")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list minted transactions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": records,
		"count":        len(records),
	})
}

// ListFinalized returns the withdrawal ledger in block index order.
// GET /api/v1/transactions/finalized
func (h *BridgeHandler) ListFinalized(c *gin.Context) {
	records, err := h.txRepo.ListFinalized(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list finalized transactions")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list finalized transactions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": records,
		"count":        len(records),
	})
}

// PublicKey returns the bridge signing public key. The key is fetched from
// the signer on every request, never cached.
// GET /api/v1/public-key
func (h *BridgeHandler) PublicKey(c *gin.Context) {
	publicKey, err := h.signer.PublicKey(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch bridge public key")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "failed to fetch bridge public key",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"public_key": base64.StdEncoding.EncodeToString(publicKey),
	})
}

package api

import (
	"net/http"

	"github.com/dsemenov/skyfare/internal/service/wallet"
	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	service wallet.WalletUseCase
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type transferRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	RecipientID string `json:"recipientId" binding:"required"`
}

func NewWalletHandler(service wallet.WalletUseCase) *WalletHandler {
	return &WalletHandler{service: service}
}

func (h *WalletHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.get)
	router.GET("/transactions", h.transactions)
	router.POST("/add-funds", h.addFunds)
	router.POST("/withdraw", h.withdraw)
	router.POST("/transfer", h.transfer)
}

func (h *WalletHandler) get(c *gin.Context) {
	w, err := h.service.GetWallet(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": w})
}

func (h *WalletHandler) transactions(c *gin.Context) {
	entries, err := h.service.Transactions(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func (h *WalletHandler) addFunds(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide a valid amount"})
		return
	}
	w, entry, err := h.service.AddFunds(c.Request.Context(), currentUser(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"balance": w.Balance, "transaction": entry}})
}

func (h *WalletHandler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide a valid amount"})
		return
	}
	w, entry, err := h.service.Withdraw(c.Request.Context(), currentUser(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"balance": w.Balance, "transaction": entry}})
}

func (h *WalletHandler) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide a valid amount and recipientId"})
		return
	}
	w, err := h.service.Transfer(c.Request.Context(), currentUser(c), req.RecipientID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"balance": w.Balance}})
}

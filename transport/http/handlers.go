package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/service"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
	}
}

// Nonce issues a challenge for an address. Chain selects the signature
// scheme whose address rules apply and defaults to aptos.
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Chain   string `json:"chain"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrInvalidAddress)
		return
	}

	challenge, err := h.authService.IssueNonce(c.Request.Context(), req.Address, req.Chain)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Verify checks a signed challenge and sets the session cookie
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		PublicKey string `json:"publicKey"`
		Signature string `json:"signature" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Chain     string `json:"chain"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	cred, err := h.authService.VerifySignature(c.Request.Context(), core.SignedMessage{
		Address:   req.Address,
		PublicKey: req.PublicKey,
		Signature: req.Signature,
		Message:   req.Message,
		Chain:     req.Chain,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.setCookie(c, cred.Token, cred.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"address":   cred.WalletAddress,
		"expiresAt": cred.ExpiresAt,
	})
}

// Logout revokes the session carried by the cookie, if any, and clears it
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	h.clearCookie(c)

	if token != "" {
		err := h.authService.Logout(c.Request.Context(), token)
		// A token that no longer validates has nothing left to revoke
		if err != nil && core.KindOf(err) != core.KindUnauthorized {
			abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session returns the identity attached by the guard
func (h *AuthHandlers) Session(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortWithError(c, core.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":   id.WalletAddress,
		"expiresAt": id.ExpiresAt,
	})
}

func (h *AuthHandlers) setCookie(c *gin.Context, token string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// AgentHandlers contains HTTP handlers for agent endpoints
type AgentHandlers struct {
	agentService *service.AgentService
}

// NewAgentHandlers creates new agent handlers
func NewAgentHandlers(agentService *service.AgentService) *AgentHandlers {
	return &AgentHandlers{agentService: agentService}
}

// ImportKey registers a custodial key for the session wallet
func (h *AgentHandlers) ImportKey(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortWithError(c, core.ErrUnauthorized)
		return
	}

	var req struct {
		PrivateKey string `json:"privateKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		// The binding error may quote the key
		abortWithError(c, core.ErrInvalidKey)
		return
	}

	account, err := h.agentService.ImportKey(c.Request.Context(), id.WalletAddress, req.PrivateKey)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accountAddress": account})
}

// Actions lists the supported protocol actions
func (h *AgentHandlers) Actions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": h.agentService.Actions()})
}

// Execute runs a protocol action for the session wallet
func (h *AgentHandlers) Execute(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		abortWithError(c, core.ErrUnauthorized)
		return
	}

	var req struct {
		Protocol      string            `json:"protocol" binding:"required"`
		Action        string            `json:"action" binding:"required"`
		FungibleAsset bool              `json:"fungibleAsset"`
		AssetType     string            `json:"assetType"`
		Amount        json.Number       `json:"amount" binding:"required"`
		ExtraParams   map[string]string `json:"extraParams"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		var numErr *json.UnmarshalTypeError
		if errors.As(err, &numErr) && numErr.Field == "amount" {
			abortWithError(c, core.ErrInvalidAmount)
			return
		}
		abortWithError(c, core.ErrInvalidRequest)
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.agentService.Execute(c.Request.Context(), core.ActionRequest{
		Protocol:      core.Protocol(req.Protocol),
		Action:        core.Action(req.Action),
		WalletAddress: id.WalletAddress,
		AssetType:     req.AssetType,
		Amount:        amount,
		FungibleAsset: req.FungibleAsset,
		Extra:         req.ExtraParams,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(resultStatus(result), result)
}

// TransactionStatus reports the network's view of a transaction
func (h *AgentHandlers) TransactionStatus(c *gin.Context) {
	result, err := h.agentService.TransactionStatus(c.Request.Context(), c.Param("hash"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

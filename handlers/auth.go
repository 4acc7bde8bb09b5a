package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocks-simulator/auth"
	"stocks-simulator/models"
)

type RegisterInput struct {
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	Confirmation string `form:"confirmation" json:"confirmation"`
}

type LoginInput struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type RefreshInput struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token" binding:"required"`
}

type accountResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Cash        string `json:"cash"`
	CashDisplay string `json:"cash_display"`
}

func newAccountResponse(u models.User) accountResponse {
	return accountResponse{
		ID:          u.ID,
		Username:    u.Username,
		Cash:        u.Cash.StringFixed(2),
		CashDisplay: models.FormatUSD(u.Cash),
	}
}

// Register creates an account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ledger.Register(c.Request.Context(), input.Username, input.Password, input.Confirmation)
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.login(c, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Registered!",
		"account":       newAccountResponse(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ledger.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.login(c, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token can't be used again.
func (h *Handler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID, err := h.issuer.ParseRefresh(input.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired or invalid"})
		return
	}

	// Consuming the stored token rotates it: a concurrent refresh with the
	// same token gets a 401.
	stored, err := h.tokens.Consume(c.Request.Context(), input.RefreshToken)
	if errors.Is(err, auth.ErrTokenNotFound) || (err == nil && stored != accountID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired or invalid"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.login(c, accountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes the refresh token. Access tokens stay valid until they
// expire.
func (h *Handler) Logout(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), input.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) login(c *gin.Context, accountID uint) (auth.Pair, error) {
	pair, err := h.issuer.Issue(accountID)
	if err != nil {
		return auth.Pair{}, err
	}
	if err := h.tokens.Save(c.Request.Context(), pair.RefreshToken, accountID, auth.RefreshTokenTTL); err != nil {
		return auth.Pair{}, err
	}
	return pair, nil
}

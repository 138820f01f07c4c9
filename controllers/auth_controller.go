package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/services"
)

const (
	accessCookieMaxAge  = 15 * 60
	refreshCookieMaxAge = 7 * 24 * 60 * 60
)

type AuthController struct {
	auth *services.AuthService
	log  *zap.Logger
}

func NewAuthController(auth *services.AuthService, log *zap.Logger) *AuthController {
	return &AuthController{auth: auth, log: log}
}

// Register handles POST /auth/register.
func (ctl *AuthController) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	result, err := ctl.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	ctl.setTokenCookies(c, result.Tokens)
	respond(c, http.StatusCreated, "account created", gin.H{
		"user":        result.User,
		"accessToken": result.Tokens.AccessToken,
	})
}

// Login handles POST /auth/login.
func (ctl *AuthController) Login(c *gin.Context) {
	var in services.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	result, err := ctl.auth.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	ctl.setTokenCookies(c, result.Tokens)
	respond(c, http.StatusOK, "logged in", gin.H{
		"user":        result.User,
		"accessToken": result.Tokens.AccessToken,
	})
}

// Refresh handles POST /auth/refresh, rotating both tokens.
func (ctl *AuthController) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		var body struct {
			RefreshToken string `json:"refreshToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			respond(c, http.StatusUnauthorized, "refresh token required", nil)
			return
		}
		refreshToken = body.RefreshToken
	}

	result, err := ctl.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	ctl.setTokenCookies(c, result.Tokens)
	respond(c, http.StatusOK, "tokens refreshed", gin.H{
		"user":        result.User,
		"accessToken": result.Tokens.AccessToken,
	})
}

// Logout handles POST /auth/logout by clearing both token cookies.
func (ctl *AuthController) Logout(c *gin.Context) {
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.SetCookie("refresh_token", "", -1, "/", "", false, true)
	respond(c, http.StatusOK, "logged out", nil)
}

// Me handles GET /auth/me.
func (ctl *AuthController) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respond(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	profile, err := ctl.auth.Me(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": profile})
}

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same whether or not the email exists.
func (ctl *AuthController) ForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	if err := ctl.auth.ForgotPassword(c.Request.Context(), body.Email); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "if that email exists, a reset link has been sent", nil)
}

// ResetPassword handles POST /auth/reset-password/:token.
func (ctl *AuthController) ResetPassword(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bindError(c, err)
		return
	}
	if err := ctl.auth.ResetPassword(c.Request.Context(), c.Param("token"), body.Password); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	respond(c, http.StatusOK, "password updated, please log in again", nil)
}

func (ctl *AuthController) setTokenCookies(c *gin.Context, tokens *services.TokenPair) {
	secure := gin.Mode() == gin.ReleaseMode
	c.SetCookie("access_token", tokens.AccessToken, accessCookieMaxAge, "/", "", secure, true)
	c.SetCookie("refresh_token", tokens.RefreshToken, refreshCookieMaxAge, "/", "", secure, true)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"account-service/internal/app"
	"account-service/internal/model"
	"account-service/internal/transport/http/middleware"
	"account-service/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=128"`
	Username  string `json:"username" binding:"max=64"`
	Password  string `json:"password" binding:"required,max=72"`
	FirstName string `json:"first_name" binding:"required,max=64"`
	LastName  string `json:"last_name" binding:"required,max=64"`
	Balance   *int64 `json:"balance" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ItemResponse struct {
	ItemID string `json:"item_id"`
	Owner  string `json:"owner"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Balance:   *req.Balance,
	})
	if err != nil {
		writeError(c, err, "register failed")
		return
	}

	response.OK(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	if _, err := h.authService.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, err, "login failed")
		return
	}

	response.Message(c, "You are now logged in")
}

// Logout is stateless: issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Message(c, "User logged out successfully")
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		badRequest(c)
		return
	}

	result, err := h.authService.IssueToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err, "issue token failed")
		return
	}

	response.OK(c, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.OK(c, user)
}

func (h *AuthHandler) MyItems(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.OK(c, []ItemResponse{{ItemID: "Foo", Owner: user.UsernameOrEmpty()}})
}

func currentUser(c *gin.Context) (*model.User, bool) {
	userAny, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "user not found in token")
		return nil, false
	}
	user, ok := userAny.(*model.User)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return nil, false
	}
	return user, true
}

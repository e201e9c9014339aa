package handler

import (
	"github.com/gin-gonic/gin"

	"account-service/internal/app"
	"account-service/internal/transport/http/response"
)

type AccountHandler struct {
	accountService *app.AccountService
}

type NameQuery struct {
	FirstName string `form:"first_name" binding:"required"`
	LastName  string `form:"last_name" binding:"required"`
}

type WithdrawQuery struct {
	NameQuery
	Amount *int64 `form:"amount" binding:"required"`
}

type ListUsersQuery struct {
	UserID    *uint   `form:"user_id"`
	FirstName *string `form:"first_name"`
	LastName  *string `form:"last_name"`
	SortBy    string  `form:"sort_by"`
	Order     string  `form:"order"`
	Skip      *int    `form:"skip"`
	Limit     *int    `form:"limit"`
}

type UpdateProfileRequest struct {
	Email        string `json:"email" binding:"omitempty,email"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	NewFirstName string `json:"new_first_name" binding:"required,max=64"`
	NewLastName  string `json:"new_last_name" binding:"required,max=64"`
}

type ChangePasswordRequest struct {
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,max=72"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

func NewAccountHandler(accountService *app.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) ListUsers(c *gin.Context) {
	var q ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c)
		return
	}

	users, err := h.accountService.ListUsers(c.Request.Context(), app.ListUsersInput{
		UserID:    q.UserID,
		FirstName: q.FirstName,
		LastName:  q.LastName,
		SortBy:    q.SortBy,
		Order:     q.Order,
		Skip:      q.Skip,
		Limit:     q.Limit,
	})
	if err != nil {
		writeError(c, err, "list users failed")
		return
	}

	response.OK(c, users)
}

func (h *AccountHandler) Balance(c *gin.Context) {
	var q NameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c)
		return
	}

	balance, err := h.accountService.GetBalance(c.Request.Context(), q.FirstName, q.LastName)
	if err != nil {
		writeError(c, err, "get balance failed")
		return
	}

	response.OK(c, gin.H{"balance": balance})
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var q WithdrawQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c)
		return
	}

	balance, err := h.accountService.Withdraw(c.Request.Context(), q.FirstName, q.LastName, *q.Amount)
	if err != nil {
		writeError(c, err, "withdraw failed")
		return
	}

	response.OK(c, gin.H{
		"message":     "Balance updated",
		"new_balance": balance,
	})
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	user, err := h.accountService.UpdateProfile(c.Request.Context(), app.UpdateProfileInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		NewFirstName: req.NewFirstName,
		NewLastName:  req.NewLastName,
	})
	if err != nil {
		writeError(c, err, "update profile failed")
		return
	}

	response.OK(c, gin.H{
		"message":    "Profile updated",
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	})
}

func (h *AccountHandler) Profile(c *gin.Context) {
	var q NameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c)
		return
	}

	user, err := h.accountService.GetProfile(c.Request.Context(), q.FirstName, q.LastName)
	if err != nil {
		writeError(c, err, "get profile failed")
		return
	}

	response.OK(c, user)
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	err := h.accountService.ChangePassword(c.Request.Context(), app.ChangePasswordInput{
		Email:              req.Email,
		Password:           req.Password,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
	})
	if err != nil {
		writeError(c, err, "change password failed")
		return
	}

	response.Message(c, "Password changed successfully")
}

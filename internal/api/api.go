package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/campus-accounts/internal/auth"
	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/metrics"
)

const (
	statusOK    = "ok"
	statusError = "error"

	msgInvalidBody   = "Invalid request body."
	msgInternal      = "Internal Server Error"
	msgRegisterError = "Server error during registration"
	msgUserNotFound  = "User not found"
)

type Handler struct {
	service *auth.Service
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
}

func NewHandler(service *auth.Service, tokens *auth.TokenManager, m *metrics.Metrics) *Handler {
	return &Handler{service: service, tokens: tokens, metrics: m}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.handleHome)
	router.GET("/health", h.handleHealth)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	router.POST("/register", h.handleRegister)
	router.POST("/login", h.handleLogin)

	protected := router.Group("/", RequireAuth(h.tokens, h.metrics))
	protected.POST("/update-mbti", h.handleUpdateMBTI)
	protected.POST("/update-interests", h.handleUpdateInterests)
	protected.GET("/profile", h.handleProfile)
}

type registerRequest struct {
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	IDNumber   string `json:"idNumber"`
	Birthday   string `json:"birthday"`
	Program    string `json:"program"`
	Department string `json:"department"`
	ActiveTab  string `json:"activeTab"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type mbtiRequest struct {
	MBTIType string `json:"mbtiType"`
}

type interestsRequest struct {
	Interests *[]string `json:"interests"`
}

func (h *Handler) handleHome(c *gin.Context) {
	writeData(c, http.StatusOK, "Server Started")
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.ObserveRegistration(metrics.OutcomeInvalid)
		writeMessage(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	_, err := h.service.Register(c.Request.Context(), auth.RegisterInput{
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		IDNumber:   req.IDNumber,
		Birthday:   req.Birthday,
		Program:    req.Program,
		Department: req.Department,
		ActiveTab:  req.ActiveTab,
	})
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			h.metrics.ObserveRegistration(metrics.OutcomeInvalid)
			writeMessage(c, http.StatusBadRequest, ve.Message)
		case errors.Is(err, db.ErrDuplicateUsername):
			h.metrics.ObserveRegistration(metrics.OutcomeDuplicate)
			writeMessage(c, http.StatusConflict, "Username already exists.")
		default:
			h.metrics.ObserveRegistration(metrics.OutcomeError)
			loggerFrom(c).Error("registration failed", zap.Error(err))
			writeMessage(c, http.StatusInternalServerError, msgRegisterError)
		}
		return
	}

	h.metrics.ObserveRegistration(metrics.OutcomeOK)
	writeMessage(c, http.StatusOK, "Registration successful")
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeData(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	token, err := h.service.Login(c.Request.Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUserNotFound):
			h.metrics.ObserveLogin(metrics.OutcomeNotFound)
			writeData(c, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.metrics.ObserveLogin(metrics.OutcomeInvalidPassword)
			writeData(c, http.StatusUnauthorized, "Invalid password")
		default:
			h.metrics.ObserveLogin(metrics.OutcomeError)
			loggerFrom(c).Error("login failed", zap.Error(err))
			writeData(c, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	h.metrics.ObserveLogin(metrics.OutcomeOK)
	writeData(c, http.StatusOK, token)
}

func (h *Handler) handleUpdateMBTI(c *gin.Context) {
	var req mbtiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeData(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	id, _ := auth.IdentityFromContext(c.Request.Context())
	if err := h.service.UpdateMBTI(c.Request.Context(), id, req.MBTIType); err != nil {
		h.writeProfileError(c, "update mbti failed", err)
		return
	}

	writeData(c, http.StatusOK, "MBTI type updated")
}

func (h *Handler) handleUpdateInterests(c *gin.Context) {
	var req interestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeData(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Interests == nil {
		writeData(c, http.StatusBadRequest, "Interests must be a list")
		return
	}

	id, _ := auth.IdentityFromContext(c.Request.Context())
	if err := h.service.UpdateInterests(c.Request.Context(), id, *req.Interests); err != nil {
		if errors.Is(err, auth.ErrTooManyInterests) {
			writeData(c, http.StatusBadRequest, "You can select up to 6 interests only")
			return
		}
		h.writeProfileError(c, "update interests failed", err)
		return
	}

	writeData(c, http.StatusOK, "Interests updated successfully")
}

// handleProfile serves the profile projection. fullname, bio, address and
// pronouns are not collected at registration, so they are null unless the
// stored document already carries them.
func (h *Handler) handleProfile(c *gin.Context) {
	id, _ := auth.IdentityFromContext(c.Request.Context())

	user, err := h.service.Profile(c.Request.Context(), id)
	if err != nil {
		h.writeProfileError(c, "fetch profile failed", err)
		return
	}

	writeData(c, http.StatusOK, gin.H{
		"username": user.Username,
		"fullname": user.Fullname,
		"bio":      user.Bio,
		"address":  user.Address,
		"pronouns": user.Pronouns,
	})
}

func (h *Handler) writeProfileError(c *gin.Context, msg string, err error) {
	if errors.Is(err, db.ErrUserNotFound) {
		writeData(c, http.StatusNotFound, msgUserNotFound)
		return
	}

	loggerFrom(c).Error(msg, zap.Error(err))
	writeData(c, http.StatusInternalServerError, msgInternal)
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"status": statusFor(status),
		"data":   data,
	})
}

// writeMessage is the register endpoint's envelope, which uses "message".
func writeMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":  statusFor(status),
		"message": message,
	})
}

func statusFor(code int) string {
	if code >= 200 && code < 300 {
		return statusOK
	}
	return statusError
}

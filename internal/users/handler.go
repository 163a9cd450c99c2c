package users

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/hnatiuk/accounts/internal/apperror"
	"github.com/hnatiuk/accounts/internal/avatar"
)

// Handler handles HTTP requests for account operations. Handlers are thin:
// they bind the request, call the service, and render the response. No
// business logic lives here.
type Handler struct {
	service Service
	avatars *avatar.Service

	// uploadMaxSize caps avatar uploads, in bytes.
	uploadMaxSize int64

	// uploadTmpDir stages in-flight uploads. Empty means the OS default.
	uploadTmpDir string
}

// NewHandler creates an account handler with the given services and upload
// limits.
func NewHandler(service Service, avatars *avatar.Service, uploadMaxSize int64, uploadTmpDir string) *Handler {
	return &Handler{
		service:       service,
		avatars:       avatars,
		uploadMaxSize: uploadMaxSize,
		uploadTmpDir:  uploadTmpDir,
	}
}

// Signup creates a new account (POST /api/users/signup).
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	profile, err := h.service.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, SignupResponse{User: *profile})
}

// Login authenticates an account and issues a session token
// (POST /api/users/login). Every failure mode here is a 401.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewUnauthorized("invalid request body")
	}

	tok, profile, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: tok, User: *profile})
}

// Logout clears the current session (POST /api/users/logout, gated).
func (h *Handler) Logout(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("Not authorized")
	}

	if err := h.service.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Current returns the profile of the gated account
// (GET /api/users/current). Pure projection; no store access.
func (h *Handler) Current(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("Not authorized")
	}

	return c.JSON(http.StatusOK, CurrentProfile(user))
}

// UpdateSubscription changes the account's subscription tier
// (PATCH /api/users, gated).
func (h *Handler) UpdateSubscription(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("Not authorized")
	}

	var req SubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	profile, err := h.service.UpdateSubscription(c.Request().Context(), user.ID, req.Subscription)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateAvatar ingests an uploaded avatar image
// (PATCH /api/users/avatars, gated, multipart field "avatar").
//
// The upload is staged into a temp file that is removed on every exit
// path, success or failure; only the normalized final artifact survives.
func (h *Handler) UpdateAvatar(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("Not authorized")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return apperror.NewBadRequest("No file uploaded")
	}
	if fileHeader.Size > h.uploadMaxSize {
		return apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %d MB", h.uploadMaxSize/(1024*1024)))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("opening upload: %w", err))
	}
	defer src.Close()

	tmp, err := os.CreateTemp(h.uploadTmpDir, "avatar-*")
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("staging upload: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil {
		return apperror.NewInternal(fmt.Errorf("staging upload: %w", copyErr))
	}
	if closeErr != nil {
		return apperror.NewInternal(fmt.Errorf("staging upload: %w", closeErr))
	}

	avatarURL, err := h.avatars.Ingest(c.Request().Context(), user.ID, tmpPath, fileHeader.Filename)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AvatarResponse{AvatarURL: avatarURL})
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"github.com/medatechnology/tenantorm/internal/auth"
	"github.com/medatechnology/tenantorm/internal/logger"
	"go.uber.org/zap"
)

type signupRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// loginRequest accepts the OAuth2 password form, where the email travels as
// username, as well as a JSON body with an email field.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	auth.Token
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) signup(c echo.Context) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" {
		return fmt.Errorf("%w: username is required", orm.ErrInvalidData)
	}
	if !strings.Contains(req.Email, "@") {
		return fmt.Errorf("%w: email is invalid", orm.ErrInvalidData)
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	id, err := s.store.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, orm.ErrDuplicateKey) {
			return echo.NewHTTPError(http.StatusConflict, "Email already registered")
		}
		return err
	}

	token, err := s.issuer.Issue(auth.Tenant{ID: id, Email: req.Email})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
	logger.FromEcho(c).Info("user signed up", zap.Int64("user_id", id))

	return c.JSON(http.StatusCreated, tokenResponse{Token: token, UserID: id, Username: req.Username, Email: req.Email})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}

	user, err := s.store.GetUserByEmail(c.Request().Context(), email)
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		if errors.Is(err, orm.ErrNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password")
		}
		return err
	}

	token, err := s.issuer.Issue(auth.Tenant{ID: user.ID, Email: user.Email})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordLogin(true)
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token, UserID: user.ID, Username: user.Username, Email: user.Email})
}

func (s *Server) me(c echo.Context) error {
	id, err := tenantID(c)
	if err != nil {
		return err
	}
	user, err := s.store.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/labstack/echo/v4"
)

type saveRequest struct {
	Address string          `json:"address"`
	Data    json.RawMessage `json:"data"`
}

type loginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) getProfile(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			return badRequest(c, "address is required")
		}
		rec, err := s.profiles.Get(c.Request().Context(), kind, address)
		if err != nil {
			return s.fail(c, err)
		}
		return ok(c, rec.Data)
	}
}

func (s *Server) saveProfile(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req saveRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Address == "" {
			return badRequest(c, "address is required")
		}
		rec, err := s.profiles.Save(c.Request().Context(), kind, req.Address, req.Data)
		if err != nil {
			return s.fail(c, err)
		}
		return ok(c, rec.Data)
	}
}

func (s *Server) deleteProfile(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			return badRequest(c, "address is required")
		}
		if err := s.profiles.Delete(c.Request().Context(), kind, address); err != nil {
			return s.fail(c, err)
		}
		return ok(c, nil)
	}
}

func (s *Server) nonce(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" {
		return badRequest(c, "address is required")
	}
	msg, err := s.auth.IssueNonce(c.Request().Context(), address)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, map[string]string{"message": msg})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Address == "" || req.Signature == "" {
		return badRequest(c, "address and signature are required")
	}
	token, err := s.auth.Login(c.Request().Context(), req.Address, req.Signature)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, map[string]string{"token": token})
}

const addressKey = "address"

// requireSession resolves the Bearer token to a wallet address.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, common.AuthorizationScheme) || token == "" {
			return s.fail(c, common.ErrorUnauthorized)
		}
		address, err := s.auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			return s.fail(c, err)
		}
		c.Set(addressKey, address)
		return next(c)
	}
}

func (s *Server) createExport(c echo.Context) error {
	address, _ := c.Get(addressKey).(string)
	exp, err := s.exports.PresignUpload(c.Request().Context(), address)
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, exp)
}

package handler

import (
	"net/http"

	"moviestore/internal/middleware"
	"moviestore/internal/storefront"
	"moviestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// ClientSessionが入れたコンテナ
func clientFrom(c echo.Context) (*storefront.Storefront, bool) {
	return middleware.StorefrontFrom(c)
}

func noClient(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

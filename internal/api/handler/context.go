package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// requestID returns the id assigned by the RequestID middleware. The
// middleware writes it to the response header before the handler runs.
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// bindPath binds and validates the path parameters into dst.
func bindPath(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindPathParams(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid path parameter")
	}
	return c.Validate(dst)
}

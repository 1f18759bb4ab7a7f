package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StreamServer upgrades a request to a websocket fed with list snapshots.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type StreamHandler struct {
	hub StreamServer
}

func NewStreamHandler(hub StreamServer) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Stream handles GET /v1/users/stream.
//
// @Summary      Live user list
// @Description  Websocket. The first frame is the current list; one frame follows every committed mutation.
// @Tags         users
// @Success      101
// @Router       /v1/users/stream [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	// the upgrader writes its own error response
	_ = h.hub.ServeWS(c.Response(), c.Request())
	return nil
}

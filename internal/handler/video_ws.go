package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"reelgen/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsWS is the websocket variant of the status stream: the current
// snapshot first, then every change, closing after a terminal status.
// Same subscription semantics as the SSE endpoint.
func (h *VideoHandler) EventsWS(c *gin.Context) {
	jobID := c.Param("id")
	v, ok := h.jobs.Get(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "video not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(v); err != nil {
		return
	}
	if v.Status.Terminal() {
		h.closeWS(conn)
		return
	}

	updates := make(chan *model.Video, 16)
	unsubscribe := h.jobs.Subscribe(jobID, func(snapshot *model.Video) {
		for {
			select {
			case updates <- snapshot:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer unsubscribe()

	// The job may have gone terminal between the snapshot and the
	// subscription; re-read so the socket still closes.
	cur, ok := h.jobs.Get(jobID)
	if !ok {
		h.closeWS(conn)
		return
	}
	if cur.Status.Terminal() {
		if err := conn.WriteJSON(cur); err == nil {
			h.closeWS(conn)
		}
		return
	}

	// Reads only serve to detect the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case snapshot := <-updates:
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			if snapshot.Status.Terminal() {
				h.closeWS(conn)
				return
			}
		}
	}
}

func (h *VideoHandler) closeWS(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

package handler

import (
	"net/http"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/service/stream"

	"github.com/gorilla/websocket"
)

// viewerUpgrader accepts dashboard viewers from any origin; the session cookie
// is checked by the middleware before the upgrade.
var viewerUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024, // klatki JPEG w base64
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler subscribes a dashboard viewer to the annotated frames of
// every source. The connection only carries frames out; anything the viewer
// sends is read and dropped so close frames are noticed.
func ViewWebsocketHandler(hub *stream.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := viewerUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Viewer upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}

		hub.Register(conn)
		defer hub.Unregister(conn)
		logger.Info("Viewer %s connected", r.RemoteAddr)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer %s left", r.RemoteAddr)
				} else {
					logger.Warning("Viewer %s dropped: %v", r.RemoteAddr, err)
				}
				return
			}
		}
	}
}

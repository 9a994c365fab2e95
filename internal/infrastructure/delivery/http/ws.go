package httprouter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/infrastructure/delivery/http/request"
	"tubefetch/internal/infrastructure/delivery/http/response"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Progress messages buffered for a slow peer before they are dropped
	sendBuffer = 64
)

// Websocket message types.
const (
	msgProgress = "progress"
	msgResult   = "result"
	msgError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsMessage is one server to client frame. Result and error frames carry the JSON envelope.
type wsMessage struct {
	Type     string                `json:"type"`
	Progress *entity.ProgressEvent `json:"progress,omitempty"`

	*response.Response
}

func envelope(message string, data any, err error) *response.Response {
	r := response.New(message, data, err)

	return &r
}

// DownloadWS runs one download per connection. The client sends a request.Download,
// the server streams progress frames and ends with a result or error frame.
// Closing the connection cancels the download.
func (ro *Router) DownloadWS(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "DownloadWS")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "failed to upgrade connection to websocket", slog.Any("error", err))

		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	ctx, cancel := context.WithTimeout(r.Context(), ro.cfg.HTTP.DownloadTimeout)
	defer cancel()

	send := make(chan wsMessage, sendBuffer)
	writerDone := make(chan struct{})

	go ro.writePump(ctx, conn, send, writerDone, cancel)

	defer func() {
		close(send)
		<-writerDone
	}()

	var in request.Download
	if err := conn.ReadJSON(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		send <- wsMessage{Type: msgError, Response: envelope(consts.RespInvalidRequestBody, nil, errs.ErrInvalidRequestBody)}

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		send <- wsMessage{Type: msgError, Response: envelope(consts.RespUnprocessableEntity, nil, err)}

		return
	}

	go readPump(conn, cancel)

	sink := entity.SinkFunc(func(ev entity.ProgressEvent) {
		select {
		case send <- wsMessage{Type: msgProgress, Progress: &ev}:
		default:
			log.DebugContext(ctx, "progress frame dropped, peer is slow")
		}
	})

	dl, err := ro.svc.Download(ctx, in.URL, in.Resolution, sink)
	if err != nil {
		message := consts.RespDownloadFail
		if errors.Is(err, errs.ErrDownloadInProgress) {
			message = consts.RespDownloadInProgress
		}

		log.ErrorContext(ctx, message, slog.Any("error", err))
		send <- wsMessage{Type: msgError, Response: envelope(message, nil, err)}

		return
	}

	log.InfoContext(ctx, consts.RespDownloadFinished, slog.Any("file", dl.File))
	send <- wsMessage{Type: msgResult, Response: envelope(consts.RespDownloadFinished, newDownloadResponse(dl), nil)}
}

// readPump only watches the connection: pongs extend the deadline, anything fatal cancels the download.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// writePump is the only writer of conn. It drains send until it is closed, then says goodbye.
// A failed write cancels the download and the remaining frames are discarded.
func (ro *Router) writePump(ctx context.Context, conn *websocket.Conn, send <-chan wsMessage, done chan<- struct{}, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		close(done)
	}()

	broken := false

	fail := func(err error) {
		if !broken {
			ro.log.DebugContext(ctx, "websocket write failed", slog.Any("error", err))
			cancel()
		}

		broken = true
	}

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				if !broken {
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}

				return
			}

			if broken {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				fail(err)
			}
		case <-ticker.C:
			if broken {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				fail(err)
			}
		}
	}
}

// Package ws exposes a running game to a browser or any other websocket
// client: state snapshots go out, player actions come in.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// writeWait bounds a single write to a peer that stopped reading.
const writeWait = 10 * time.Second

type Bridge struct {
	game     *app.Game
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewBridge(game *app.Game, log zerolog.Logger) *Bridge {
	return &Bridge{
		game: game,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Handler routes /ws, /healthz and, when reg is non-nil, /metrics.
func (b *Bridge) Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", b.ServeWS)
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type textPayload struct {
	Text string `json:"text"`
}

type loginPayload struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ServeWS upgrades the request and binds the connection to the game until
// either side closes.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := b.game.Store.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				b.log.Debug().Err(err).Msg("ws write")
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case s, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: newStateView(s)}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := b.dispatch(ctx, inbound); err != nil {
			if !deliver(send, writerDone, outboundMessage{Type: "error", Payload: toErrorPayload(err)}) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// deliver queues msg for the writer. It reports false once the writer has
// exited, since nothing will drain send any more.
func deliver(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (b *Bridge) dispatch(ctx context.Context, in inboundMessage) error {
	g := b.game
	switch in.Type {
	case "start":
		_, err := g.Rounds.Start(ctx)
		return err
	case "next":
		_, err := g.Rounds.Next(ctx)
		return err
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errors.New("invalid select payload")
		}
		return g.Rounds.Select(p.Index)
	case "text":
		var p textPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errors.New("invalid text payload")
		}
		return g.Rounds.SetText(p.Text)
	case "submit":
		_, err := g.Rounds.Submit(ctx)
		return err
	case "finalize":
		_, err := g.Rounds.Finalize(ctx)
		return err
	case "login":
		var p loginPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errors.New("invalid login payload")
		}
		_, err := g.Session.Login(ctx, p.Username, p.PIN)
		return err
	case "logout":
		return g.Session.Logout(ctx)
	case "guest_name":
		var p textPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errors.New("invalid guest_name payload")
		}
		return g.Session.SetGuestName(ctx, p.Text)
	case "refresh":
		// panel failures are not the player's problem
		_ = g.Panels.Refresh(ctx)
		return nil
	default:
		return errors.New("unsupported message type")
	}
}

func toErrorPayload(err error) errorPayload {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return errorPayload{Message: verr.Error(), Fields: verr.Fields}
	}
	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return errorPayload{Message: reqErr.Message}
	}
	return errorPayload{Message: err.Error()}
}

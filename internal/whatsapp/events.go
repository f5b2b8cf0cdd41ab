package whatsapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// InboundMessage is one user message received over the event socket.
type InboundMessage struct {
	Phone string // digits only
	Name  string // sender display name, may be empty
	Text  string
}

// Handler consumes inbound messages. Called sequentially per
// connection; spawn goroutines inside if processing is slow.
type Handler func(ctx context.Context, msg InboundMessage)

// Listener maintains the gateway websocket and feeds inbound text
// messages to a handler, reconnecting with backoff when the socket
// drops.
type Listener struct {
	baseURL  string
	apiKey   string
	instance string
	handler  Handler
	logger   *slog.Logger
}

// NewListener builds an event listener for one instance.
func NewListener(baseURL, apiKey, instance string, handler Handler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		baseURL:  baseURL,
		apiKey:   apiKey,
		instance: instance,
		handler:  handler,
		logger:   logger,
	}
}

const (
	reconnectMin = time.Second
	reconnectMax = time.Minute
)

// Run connects and consumes events until the context is cancelled.
// Connection failures back off exponentially up to a minute.
func (l *Listener) Run(ctx context.Context) error {
	backoff := reconnectMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("event socket closed, reconnecting",
			"instance", l.instance, "backoff", backoff, "error", err)

		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	wsURL, err := l.socketURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("apikey", l.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	l.logger.Info("event socket connected", "instance", l.instance)

	// Drop the connection promptly on cancellation; ReadMessage has no
	// context parameter.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msg, ok := ParseEvent(raw); ok {
			l.handler(ctx, msg)
		}
	}
}

func (l *Listener) socketURL() (string, error) {
	u, err := url.Parse(l.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/" + l.instance
	return u.String(), nil
}

// gatewayEvent is the envelope Evolution pushes over the socket.
type gatewayEvent struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// ParseEvent extracts an inbound user message from a raw gateway
// event. Non-message events, own outbound echoes, group chats and
// empty texts are skipped. Shared by the socket listener and the
// webhook endpoint, which receive the same payload shape.
func ParseEvent(raw []byte) (InboundMessage, bool) {
	var ev gatewayEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return InboundMessage{}, false
	}
	if ev.Event != "messages.upsert" || ev.Data.Key.FromMe {
		return InboundMessage{}, false
	}
	jid := ev.Data.Key.RemoteJid
	if !strings.HasSuffix(jid, "@s.whatsapp.net") {
		return InboundMessage{}, false
	}

	text := ev.Data.Message.Conversation
	if text == "" {
		text = ev.Data.Message.ExtendedTextMessage.Text
	}
	if strings.TrimSpace(text) == "" {
		return InboundMessage{}, false
	}

	return InboundMessage{
		Phone: CleanNumber(strings.TrimSuffix(jid, "@s.whatsapp.net")),
		Name:  ev.Data.PushName,
		Text:  text,
	}, true
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"

	"github.com/chatward/chatward/chat"
)

// gatewayFrame is one event from the chat gateway stream.
type gatewayFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Run subscribes to the gateway and feeds messages through the command
// router and the lane scheduler, reconnecting with backoff on stream
// failure. Blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	u, err := url.Parse(s.gatewayHost)
	if err != nil {
		return fmt.Errorf("invalid gateway URI: %w", err)
	}
	u.Path = "/stream/messages"

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			s.lanes.Shutdown()
			return nil
		}

		con, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{
			"User-Agent": []string{fmt.Sprintf("chatward/%s", versioninfo.Short())},
		})
		if err != nil {
			s.logger.Error("gateway dial failed", "err", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				s.lanes.Shutdown()
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		s.logger.Info("connected to gateway", "host", s.gatewayHost)
		backoff = time.Second

		if err := s.consume(ctx, con); err != nil {
			s.logger.Error("gateway stream failed, reconnecting", "err", err)
			gatewayReconnects.Inc()
		}
		con.Close()
	}
}

func (s *Server) consume(ctx context.Context, con *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		var frame gatewayFrame
		if err := con.ReadJSON(&frame); err != nil {
			return fmt.Errorf("reading gateway frame: %w", err)
		}
		if frame.Type != "message" {
			continue
		}

		var msg chat.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			s.logger.Warn("dropping undecodable gateway frame", "err", err)
			messagesDropped.Inc()
			continue
		}
		messagesReceived.Inc()

		if err := s.lanes.Submit(ctx, &msg); err != nil {
			return fmt.Errorf("submitting to lane scheduler: %w", err)
		}
	}
}

// handleMessage is the lane worker entrypoint: commands first, everything
// else through the automod pipeline.
func (s *Server) handleMessage(ctx context.Context, msg *chat.Message) error {
	ctx, span := tracer.Start(ctx, "handleMessage")
	defer span.End()

	if reply, handled := s.registry.Handle(ctx, msg); handled {
		commandsHandled.Inc()
		if reply != "" {
			if err := s.modService.Announce(ctx, msg.Channel, reply); err != nil {
				s.logger.Warn("command reply failed", "err", err, "channel", msg.Channel)
			}
		}
		return nil
	}
	return s.engine.ProcessMessage(ctx, msg)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"marketSimServer/config"
	"marketSimServer/engine"
	"marketSimServer/state"
)

// ClientMessage is an inbound command envelope.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	Username string `json:"username"`
}

type orderData struct {
	Username string     `json:"username"`
	Symbol   string     `json:"symbol"`
	Side     string     `json:"side"`
	Qty      flexNumber `json:"qty"`
	Type     string     `json:"type"`
	Trigger  flexNumber `json:"trigger"`
}

type adminData struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// flexNumber accepts both 5 and "5"; form inputs often send strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = flexNumber(f)
	return nil
}

var errMissingData = errors.New("missing data")

// parseOrder turns a place_order payload into an engine request. The
// stop_loss_sell and stop_loss_buy types imply their side.
func parseOrder(d orderData) (engine.OrderRequest, error) {
	req := engine.OrderRequest{
		Username: strings.TrimSpace(d.Username),
		Symbol:   strings.ToUpper(strings.TrimSpace(d.Symbol)),
		Trigger:  float64(d.Trigger),
	}

	qty := float64(d.Qty)
	if qty <= 0 || qty > config.MaxOrderQuantity {
		return req, fmt.Errorf("%w: quantity must be between 1 and %d", state.ErrInvalidOrder, config.MaxOrderQuantity)
	}
	if qty != float64(int(qty)) {
		return req, fmt.Errorf("%w: quantity must be a whole number", state.ErrInvalidOrder)
	}
	req.Quantity = int(qty)

	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "", string(engine.OrderMarket):
		req.Type = engine.OrderMarket
	case string(engine.OrderStopLoss):
		req.Type = engine.OrderStopLoss
	case string(state.StopLossSell):
		req.Type = engine.OrderStopLoss
		req.Side = state.SideSell
	case string(state.StopLossBuy):
		req.Type = engine.OrderStopLoss
		req.Side = state.SideBuy
	default:
		return req, fmt.Errorf("%w: order type %q", state.ErrInvalidOrder, d.Type)
	}

	if req.Side == "" {
		side, err := state.ParseSide(d.Side)
		if err != nil {
			return req, err
		}
		req.Side = side
	}
	return req, nil
}

// handleMessage dispatches one client command to the engine.
func (c *ClientConnection) handleMessage(cmds Commands, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), config.CommandTimeout)
	defer cancel()

	switch msg.Type {
	case "join_game":
		var d joinData
		if err := decode(msg.Data, &d); err != nil {
			c.sendError(err)
			return
		}
		name := strings.TrimSpace(d.Username)
		if name == "" {
			c.sendError(state.ErrInvalidName)
			return
		}
		// Bind first so the engine's replies reach this connection.
		c.hub.bind(c, name)
		if _, err := cmds.Join(ctx, name); err != nil {
			log.Printf("⚠️  Join failed for client %s: %v", c.ID, err)
			c.sendError(err)
		}

	case "place_order":
		var d orderData
		if err := decode(msg.Data, &d); err != nil {
			c.sendError(err)
			return
		}
		if d.Username == "" {
			d.Username = c.Username()
		}
		req, err := parseOrder(d)
		if err != nil {
			c.sendError(err)
			return
		}
		if req.Username == "" {
			c.sendError(state.ErrInvalidName)
			return
		}
		if req.Username != c.Username() {
			c.hub.bind(c, req.Username)
		}
		if _, err := cmds.PlaceOrder(ctx, req); err != nil {
			// The engine has already told the participant; nothing more to send.
			log.Printf("📝 Order from %s rejected: %v", req.Username, err)
		}

	case "admin_action":
		var d adminData
		if err := decode(msg.Data, &d); err != nil {
			c.sendError(err)
			return
		}
		if _, err := cmds.Admin(ctx, d.Action, strings.ToUpper(strings.TrimSpace(d.Symbol))); err != nil {
			log.Printf("⚠️  Admin action %q failed: %v", d.Action, err)
			c.sendError(err)
		}

	default:
		log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errMissingData
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed data: %w", err)
	}
	return nil
}

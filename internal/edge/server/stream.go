package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pickslab/picks-edge/internal/reconcile"
	"github.com/pickslab/picks-edge/pkg/logger"
)

// tradeHub broadcasts newly reconciled trades to websocket subscribers —
// the realtime feed the front-end renders on market pages.

type tradeEvent struct {
	PickID      string `json:"pick_id"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Trader      string `json:"trader"`
	IsYes       bool   `json:"is_yes"`
	AmountWei   string `json:"amount_wei"`
	SharesWei   string `json:"shares_wei"`
	PriceBps    *int64 `json:"price_bps,omitempty"`
	BlockNumber uint64 `json:"block_number"`
	OccurredAt  string `json:"occurred_at"`
}

type tradeHub struct {
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []tradeEvent
	done       chan struct{}
}

func newTradeHub() *tradeHub {
	return &tradeHub{
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []tradeEvent, 16),
		done:       make(chan struct{}),
	}
}

func (h *tradeHub) run() {
	conns := map[*websocket.Conn]bool{}
	for {
		select {
		case <-h.done:
			for c := range conns {
				_ = c.Close()
			}
			return
		case c := <-h.register:
			conns[c] = true
		case c := <-h.unregister:
			if conns[c] {
				delete(conns, c)
				_ = c.Close()
			}
		case events := <-h.broadcast:
			for c := range conns {
				_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := c.WriteJSON(events); err != nil {
					delete(conns, c)
					_ = c.Close()
				}
			}
		}
	}
}

func (h *tradeHub) stop() {
	close(h.done)
}

func (h *tradeHub) broadcastTrades(rows []reconcile.TradeRow) {
	events := make([]tradeEvent, 0, len(rows))
	for _, row := range rows {
		ev := tradeEvent{
			PickID:      row.PickID,
			TxHash:      row.TxHash,
			LogIndex:    row.LogIndex,
			Trader:      row.Trader,
			IsYes:       row.IsYes,
			AmountWei:   row.AmountWei.String(),
			SharesWei:   row.SharesWei.String(),
			BlockNumber: row.BlockNumber,
			OccurredAt:  row.OccurredAt.Format(time.RFC3339),
		}
		if row.IsYes {
			ev.PriceBps = row.YesPriceBps
		} else {
			ev.PriceBps = row.NoPriceBps
		}
		events = append(events, ev)
	}
	select {
	case h.broadcast <- events:
	default:
		logger.Warnf("trade stream backlog full, dropping %d events", len(events))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("trade stream upgrade: %v", err)
		return
	}
	s.hub.register <- conn

	// Reader loop only to detect disconnects; clients do not send data.
	go func() {
		defer func() { s.hub.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

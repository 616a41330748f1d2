package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ginkana-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type rankingMessage struct {
	Type    string               `json:"type"`
	Entries []domain.RankingEntry `json:"entries"`
}

// serveRankingWS streams the scoreboard: one snapshot on connect, then one
// message after every accepted submission.
func (h *Handler) serveRankingWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	entries, err := h.service.Ranking(r.Context())
	if err != nil {
		_ = conn.WriteJSON(errorResponse{Error: err.Error(), Code: "store_unavailable"})
		return
	}

	updates, cancel := h.service.SubscribeRanking()
	defer cancel()

	send := make(chan rankingMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	// The read loop only exists to notice the peer going away.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send <- rankingMessage{Type: "ranking", Entries: entries}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			select {
			case send <- rankingMessage{Type: "ranking", Entries: update}:
			case <-writerDone:
				return
			}
		case <-readerDone:
			close(send)
			<-writerDone
			return
		case <-writerDone:
			return
		}
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/matjip-discussion/internal/auth"
)

const writeWait = 5 * time.Second

// streamComments отдаёт события комментариев материала по websocket.
// Подписка оформляется до апгрейда, чтобы не потерять события между ответом и чтением.
func (s *Server) streamComments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Скрытый или отсутствующий материал даёт обычную ошибку до апгрейда.
	if err := s.svc.Visible(r.Context(), auth.FromContext(r.Context()), spaceOf(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.observer == nil {
		http.Error(w, "streaming disabled", http.StatusNotImplemented)
		return
	}

	events, cancel := s.observer.Subscribe(id)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Читатель нужен, чтобы обрабатывать close и pong.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

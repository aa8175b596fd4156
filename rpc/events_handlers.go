package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"cafichain/core"
	"cafichain/eventlog"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "unavailable", "event log disabled")
		return
	}
	q := r.URL.Query()
	filter := eventlog.Filter{
		Caller:    q.Get("caller"),
		Operation: q.Get("operation"),
		EventType: q.Get("type"),
	}
	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid after cursor")
			return
		}
		filter.AfterSequence = after
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	receipts, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "unavailable", "event log disabled")
		return
	}
	receipt, err := s.store.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "unavailable", "event stream disabled")
		return
	}
	var since uint64
	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		if parsed, err := strconv.ParseUint(cursor, 10, 64); err == nil {
			since = parsed
		}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamReceipts(r.Context(), conn, since); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamReceipts(ctx context.Context, conn *websocket.Conn, since uint64) error {
	ctx = conn.CloseRead(ctx)
	updates, cancel, backlog := s.hub.Subscribe(ctx, since)
	defer cancel()

	for _, receipt := range backlog {
		if err := writeReceipt(ctx, conn, receipt); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case receipt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeReceipt(ctx, conn, receipt); err != nil {
				return err
			}
		}
	}
}

func writeReceipt(ctx context.Context, conn *websocket.Conn, receipt *core.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

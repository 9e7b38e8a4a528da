package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
)

const eventStreamHeartbeat = 15 * time.Second

// EventStream pushes warehouse updates to the browser over SSE.
func EventStream(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event hub unavailable"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		events, cancel := hub.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		heartbeat := time.NewTicker(eventStreamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case event, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					logg.Error(r.Context(), "event stream marshal failed", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload)
				flusher.Flush()
			}
		}
	}
}

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/internal/storefront"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const (
	defaultKeepAlive = 25 * time.Second
	viewEventName    = "view"
)

// SessionView returns the current snapshot of the visitor's storefront.
func SessionView(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

// SessionEvents streams a view snapshot as a server-sent event after every
// change to the session, starting with the current one. Bursts of changes
// coalesce into a single event.
func SessionEvents(logg *logger.Logger, keepAlive time.Duration) http.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		changed := make(chan struct{}, 1)
		unsubscribe := session.Subscribe(func(storefront.Event) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()

		if err := writeViewEvent(w, rc, session.View()); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if err := writeViewEvent(w, rc, session.View()); err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "session.events.write_failed")
					}
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeViewEvent(w http.ResponseWriter, rc *http.ResponseController, view storefront.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", viewEventName, data); err != nil {
		return err
	}
	return rc.Flush()
}

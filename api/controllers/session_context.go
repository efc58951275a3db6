package controllers

import (
	"net/http"

	"github.com/angelmondragon/asala-storefront/api/middleware"
	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

// requireSession writes an error and returns false when the Session
// middleware did not run.
func requireSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*storefront.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
		return nil, false
	}
	return session, true
}

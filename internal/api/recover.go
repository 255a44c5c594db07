package api

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// recoverJSON turns a handler panic into a 500 with a JSON body. The panic
// value is reported in the message field.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			msg := fmt.Sprint(rec)
			if err, ok := rec.(error); ok {
				msg = err.Error()
			}
			hlog.FromRequest(r).Error().Str("panic", msg).Msg("handler panic")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError, Message: msg})
		}()
		next.ServeHTTP(w, r)
	})
}

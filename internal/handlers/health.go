package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

const rootMessage = "gh-paylink backend running!"

// Root is the liveness check. It never touches storage or the gateway.
func Root(log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			return
		}
		writeText(w, log, http.StatusOK, rootMessage)
	}
}

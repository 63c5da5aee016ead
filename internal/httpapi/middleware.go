package httpapi

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

// quietPaths are polled often and only logged on errors.
var quietPaths = map[string]bool{
	"/api/health":   true,
	"/api/schedule": true,
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if quietPaths[r.URL.Path] && status < 400 {
			return
		}
		if status >= 500 {
			log.Error("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
			return
		}
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
	})
}

package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jakechorley/activity-log/internal/config"
)

func New(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

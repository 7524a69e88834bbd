package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"smilestore/internal/config"
	"smilestore/internal/netshare"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Settings *config.Config       // resolved settings
	Logger   zerolog.Logger       // root logger; components derive from it
	HTTP     *http.Client         // optional; replication builds its own when nil
	Registry *prometheus.Registry // optional; a fresh registry when nil

	// NetShare options, e.g. a custom mounter or mount table.
	NetShare []netshare.Option
}

package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	resultOK      = "ok"
	resultFailed  = "failed"
	resultSkipped = "skipped"

	opEntity      = "entity"
	opIndex       = "index"
	opAllEntities = "all_entities"
	opDeletion    = "deletion"
)

// Metrics holds the counters the orchestrator updates.
type Metrics struct {
	Operations *prometheus.CounterVec // smilestore_sync_operations_total{op,result}
	Files      prometheus.Counter     // smilestore_sync_files_total
}

// NewMetrics registers the sync counters with registry. A nil registry gets
// a private one, so several orchestrators can coexist in one process.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Metrics{
		Operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "smilestore_sync_operations_total",
			Help: "Sync operations by kind and outcome",
		}, []string{"op", "result"}),

		Files: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "smilestore_sync_files_total",
			Help: "Blobs successfully copied to the replication target",
		}),
	}
}

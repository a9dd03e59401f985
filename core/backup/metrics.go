package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edutrack_backup_duration_seconds",
		Help:    "Time to take a database backup",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"type", "status"})

	restoreDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edutrack_restore_duration_seconds",
		Help:    "Time to restore the database from a backup",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"status"})

	backupSizeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edutrack_backup_size_bytes",
		Help: "Size of the most recent backup in bytes",
	}, []string{"database"})

	backupOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edutrack_backup_operations_total",
		Help: "Total backup operations by type and status",
	}, []string{"operation", "status"})
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

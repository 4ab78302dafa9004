// Package metrics defines and registers all custom Prometheus metrics for the
// member portal API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersUpdatedTotal counts successful updateUser calls.
// Label:
//   - scope: "self" when the caller edited their own account, "admin" otherwise
var UsersUpdatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_updated_total",
		Help:      "Total number of user records updated, by edit scope.",
	},
	[]string{"scope"},
)

// UsersDeletedTotal counts user rows removed by administrators.
var UsersDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_deleted_total",
		Help:      "Total number of user records deleted.",
	},
)

// AuthzDeniedTotal counts rejected calls.
// Labels:
//   - operation: "listUsers", "updateUser", "deleteUser", ...
//   - reason: "unauthorized", "forbidden", "self_demotion"
var AuthzDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denied_total",
		Help:      "Total number of calls rejected by authentication or authorization checks.",
	},
	[]string{"operation", "reason"},
)

// IdentityCacheTotal counts identity cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var IdentityCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_cache_total",
		Help:      "Total number of identity cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Avatar metrics ────────────────────────────────────────────────────────────

// AvatarUploadsTotal counts replaceImage outcomes.
// Label:
//   - result: "uploaded", "default", "too_large", "decode_failed", "upload_failed"
var AvatarUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "avatar_uploads_total",
		Help:      "Total number of avatar replacement attempts, by result.",
	},
	[]string{"result"},
)

// AvatarUploadBytes observes the decoded size of uploaded avatars.
var AvatarUploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "avatar_upload_bytes",
		Help:      "Decoded size of uploaded avatar images.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 6), // 16KiB .. 16MiB
	},
)

// BlobCleanupTotal counts deletions of superseded or orphaned blobs.
// Label:
//   - result: "deleted", "failed", "queued", "dropped"
var BlobCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_cleanup_total",
		Help:      "Total number of blob cleanup attempts, by result.",
	},
	[]string{"result"},
)

// BlobJanitorQueueDepth tracks refs waiting in each janitor worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var BlobJanitorQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "blob_janitor_queue_depth",
		Help:      "Current number of orphaned blobs pending in each janitor worker channel.",
	},
	[]string{"worker_id"},
)

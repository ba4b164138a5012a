// AngelaMos | 2026
// dto.go

package admin

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

// Overview is the business dashboard: who signed up, who paid, and what
// still needs manual attention.
type Overview struct {
	Students           int   `db:"students"            json:"students"`
	ActiveBatches      int   `db:"active_batches"      json:"active_batches"`
	ActiveEnrollments  int   `db:"active_enrollments"  json:"active_enrollments"`
	PendingEnrollments int   `db:"pending_enrollments" json:"pending_enrollments"`
	PaymentsSucceeded  int   `db:"payments_succeeded"  json:"payments_succeeded"`
	PaymentsPending    int   `db:"payments_pending"    json:"payments_pending"`
	PaymentsFailed     int   `db:"payments_failed"     json:"payments_failed"`
	Revenue            int64 `db:"revenue"             json:"revenue"`
	ReconciliationGaps int   `db:"-"                   json:"reconciliation_gaps"`
}

type PurgeResponse struct {
	RefreshTokens int64 `json:"refresh_tokens"`
	OTPRecords    int64 `json:"otp_records"`
}

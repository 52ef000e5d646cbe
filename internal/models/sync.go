package models

// SyncRecord 一行待同步数据（列名 -> 值）
type SyncRecord map[string]interface{}

// SyncBatch 一次云端同步请求的载荷
// BatchID 形如 "<table>_<unix秒>"，整批确认成功后才标记已同步
type SyncBatch struct {
	FarmID    string       `json:"farm_id"`
	Table     string       `json:"table"`
	Records   []SyncRecord `json:"records"`
	Timestamp string       `json:"timestamp"`
	Source    string       `json:"source"`
	BatchID   string       `json:"batch_id"`
}

// SyncStats 同步统计（每个完整周期更新一次）
type SyncStats struct {
	TotalSynced    int    `json:"total_synced"`
	FailedSyncs    int    `json:"failed_syncs"`
	LastSyncTime   string `json:"last_sync_time"`
	LastSyncStatus string `json:"last_sync_status"`
}

package orm

import (
	"fmt"
	"time"
)

// StatusStruct is what the database reports about itself for health checks.
// Some fields may be empty depending on the backend.
type StatusStruct struct {
	DBMS         string        `json:"dbms,omitempty"`
	DBMSDriver   string        `json:"dbms_driver,omitempty"`
	Version      string        `json:"version,omitempty"`
	Database     string        `json:"database,omitempty"`
	StartTime    time.Time     `json:"start_time,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	MaxPool      int           `json:"max_pool,omitempty"`
	OpenConns    int           `json:"open_conns"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	Connected    bool          `json:"connected"`
	PingDuration time.Duration `json:"ping_duration,omitempty"`
}

// Summary renders a one-line status for logs and the CLI.
// Output Example:
//
//	postgresql 16.2 (db=shop, pool 1/1 in use, up 3h2m0s)
func (s StatusStruct) Summary() string {
	if !s.Connected {
		return fmt.Sprintf("%s (disconnected)", s.DBMS)
	}
	return fmt.Sprintf("%s %s (db=%s, pool %d/%d in use, up %s)",
		s.DBMS, s.Version, s.Database, s.InUse, s.MaxPool, s.Uptime.Truncate(time.Second))
}

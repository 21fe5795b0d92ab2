package provider

import "time"

// Recognized statistic names.
const (
	StatsHits            = "hits"
	StatsMisses          = "misses"
	StatsUptime          = "uptime"
	StatsMemoryUsage     = "memory_usage"
	StatsMemoryAvailable = "memory_available"
)

// Stats is a backend snapshot. Fields a backend cannot report stay zero.
type Stats struct {
	Hits            uint64
	Misses          uint64
	Uptime          time.Duration
	MemoryUsage     uint64 // bytes used for storage
	MemoryAvailable uint64 // bytes still allowed for storage; 0 = unknown/unbounded
}

// Map renders s with the recognized statistic names. Uptime is in seconds.
func (s Stats) Map() map[string]uint64 {
	return map[string]uint64{
		StatsHits:            s.Hits,
		StatsMisses:          s.Misses,
		StatsUptime:          uint64(s.Uptime / time.Second),
		StatsMemoryUsage:     s.MemoryUsage,
		StatsMemoryAvailable: s.MemoryAvailable,
	}
}

package resource

// CalculateMaxConnections derives a safe default connection cap from the
// container memory limit, reserving headroom for the Go runtime and this
// process's own buffers. Returns 10,000 when no limit is detected (bare
// metal, local development).
//
// Budget per connection is dominated by its buffered send channel; see
// internal/edge for the exact buffer size this assumes.
func CalculateMaxConnections(memoryLimitBytes int64) int {
	const (
		runtimeOverheadBytes = 64 * 1024 * 1024
		bytesPerConnection   = 96 * 1024
		minConnections       = 100
		maxConnections       = 50000
		defaultConnections   = 10000
	)

	if memoryLimitBytes == 0 {
		return defaultConnections
	}

	available := memoryLimitBytes - runtimeOverheadBytes
	if available < 0 {
		available = memoryLimitBytes / 2
	}

	conns := int(available / bytesPerConnection)
	if conns < minConnections {
		conns = minConnections
	}
	if conns > maxConnections {
		conns = maxConnections
	}
	return conns
}

package constants

// JobStatus is the terminal state of one submitted document.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"    // accepted by the pool
	JobStatusRunning   JobStatus = "RUNNING"   // picked up by a worker
	JobStatusCompleted JobStatus = "COMPLETED" // merged and committed
	JobStatusFailed    JobStatus = "FAILED"    // committed with an error and nothing usable
)

package ports

import (
	"context"
	"io"
)

//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry records the execution of graph nodes for progress display.
type Telemetry interface {
	// Record starts recording a new vertex for the named node.
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns a writer capturing the node's standard output.
	Stdout() io.Writer
	// Stderr returns a writer capturing the node's error output.
	Stderr() io.Writer
	// Progress reports advisory completion, percent in [0,1].
	Progress(percent float64, message string)
	// Cached marks the vertex as skipped.
	Cached()
	// Complete marks the vertex as finished.
	Complete(err error)
}

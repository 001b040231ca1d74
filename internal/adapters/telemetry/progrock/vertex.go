package progrock

import (
	"fmt"
	"io"

	"github.com/vito/progrock"
)

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Stdout returns a writer to capture standard output stream.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Stderr returns a writer to capture error output stream.
func (v *Vertex) Stderr() io.Writer {
	return v.vertex.Stderr()
}

// Progress reports advisory completion as a log line on the vertex.
func (v *Vertex) Progress(percent float64, message string) {
	if message == "" {
		_, _ = fmt.Fprintf(v.vertex.Stdout(), "[%3.0f%%]\n", percent*100)
		return
	}
	_, _ = fmt.Fprintf(v.vertex.Stdout(), "[%3.0f%%] %s\n", percent*100, message)
}

// Cached marks the vertex as a cache hit.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}

// Complete marks the vertex as finished, successfully or with an error.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}

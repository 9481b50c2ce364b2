package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// NDJSONWriter writes one JSON document per line and pushes each line to
// HTTP clients immediately. It is not safe for concurrent use; batch.Stream
// emits from a single goroutine.
type NDJSONWriter struct {
	enc   *json.Encoder
	flush func()
	lines int
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	nd := &NDJSONWriter{enc: json.NewEncoder(w), flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		nd.flush = f.Flush
	}
	return nd
}

// WriteObject is a no-op on a nil writer.
func (nd *NDJSONWriter) WriteObject(v any) error {
	if nd == nil {
		return nil
	}
	if err := nd.enc.Encode(v); err != nil {
		return err
	}
	nd.lines++
	nd.flush()
	return nil
}

// Lines reports how many documents were written.
func (nd *NDJSONWriter) Lines() int {
	if nd == nil {
		return 0
	}
	return nd.lines
}

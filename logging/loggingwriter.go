package logging

import "net/http"

// loggingWriter records the status code and the body size of a response
// for the access log.
type loggingWriter struct {
	writer http.ResponseWriter
	code   int
	bytes  int64
}

func (lw *loggingWriter) Header() http.Header { return lw.writer.Header() }

// WriteHeader records the first status code only, the way the server
// sends it.
func (lw *loggingWriter) WriteHeader(code int) {
	if lw.code == 0 {
		lw.code = code
	}

	lw.writer.WriteHeader(code)
}

func (lw *loggingWriter) Write(data []byte) (int, error) {
	if lw.code == 0 {
		lw.code = http.StatusOK
	}

	n, err := lw.writer.Write(data)
	lw.bytes += int64(n)
	return n, err
}

func (lw *loggingWriter) Flush() {
	if f, ok := lw.writer.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap is used by http.ResponseController.
func (lw *loggingWriter) Unwrap() http.ResponseWriter { return lw.writer }

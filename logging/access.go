package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	snet "github.com/zalando/featureroute/net"
)

const (
	dateFormat      = "02/Jan/2006:15:04:05 -0700"
	commonLogFormat = `%s - - [%s] "%s %s %s" %d %d`
	// format:
	// remote_host - - [date] "method uri protocol" status response_size "referer" "user_agent"
	combinedLogFormat = commonLogFormat + ` "%s" "%s"`
	// duration in ms, requested host, route name and variant
	accessLogFormat = combinedLogFormat + " %d %s %s %s\n"
)

type accessLogFormatter struct {
	format string
}

// AccessEntry is an access log entry.
type AccessEntry struct {

	// The client request.
	Request *http.Request

	// The status code of the response.
	StatusCode int

	// The size of the response in bytes.
	ResponseSize int64

	// The time spent processing request.
	Duration time.Duration

	// The time that the request was received.
	RequestTime time.Time

	// The name of the route that served the request. Empty when no
	// route matched.
	RouteName string

	// The variant selected by the route, when it has more than one.
	Variant string
}

var accessLog *logrus.Logger

func remoteHost(r *http.Request) string {
	if a := snet.RemoteAddr(r); a.IsValid() {
		return a.String()
	}

	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// field order of the text format
var accessLogKeys = []string{
	"host", "timestamp", "method", "uri", "proto",
	"status", "response-size", "referer", "user-agent",
	"duration", "requested-host", "route", "variant",
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	values := make([]any, len(accessLogKeys))
	for i, key := range accessLogKeys {
		values[i] = e.Data[key]
	}

	return fmt.Appendf(nil, f.format, values...), nil
}

func (e *AccessEntry) fields() logrus.Fields {
	f := logrus.Fields{
		"timestamp":      e.RequestTime.Format(dateFormat),
		"host":           "-",
		"method":         "",
		"uri":            "",
		"proto":          "",
		"referer":        "",
		"user-agent":     "",
		"requested-host": "-",
		"status":         e.StatusCode,
		"response-size":  e.ResponseSize,
		"duration":       int64(e.Duration / time.Millisecond),
		"route":          orDash(e.RouteName),
		"variant":        orDash(e.Variant),
	}

	if r := e.Request; r != nil {
		f["host"] = remoteHost(r)
		f["method"] = r.Method
		f["uri"] = r.RequestURI
		f["proto"] = r.Proto
		f["referer"] = r.Referer()
		f["user-agent"] = r.UserAgent()
		f["requested-host"] = orDash(r.Host)
	}

	return f
}

// LogAccess logs an access event in Apache combined log format, with the
// duration, the requested host, the route and the variant appended.
func LogAccess(entry *AccessEntry) {
	if accessLog == nil || entry == nil {
		return
	}

	accessLog.WithFields(entry.fields()).Infoln()
}

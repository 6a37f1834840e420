package logger

import (
	"net/http"

	"github.com/rollbar/rollbar-go"
)

var reportingEnabled bool

type ReportOptions struct {
	Token       string
	Environment string
	Host        string
	CodeVersion string
}

// ConfigureReporting enables rollbar reporting of server errors. Without a
// token Report only logs.
func ConfigureReporting(opts ReportOptions) {
	if opts.Token == "" {
		reportingEnabled = false
		rollbar.SetEnabled(false)
		return
	}
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Environment)
	rollbar.SetServerHost(opts.Host)
	rollbar.SetCodeVersion(opts.CodeVersion)
	rollbar.SetEnabled(true)
	reportingEnabled = true
}

// Report logs err and forwards it to rollbar when reporting is enabled.
func Report(msg string, err error, r *http.Request) {
	if r != nil {
		Error(msg, "error", err, "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()))
	} else {
		Error(msg, "error", err)
	}
	if !reportingEnabled {
		return
	}
	if r != nil {
		rollbar.RequestError(rollbar.ERR, r, err)
		return
	}
	rollbar.Error(err)
}

// FlushReports blocks until queued reports are sent.
func FlushReports() {
	if reportingEnabled {
		rollbar.Wait()
	}
}

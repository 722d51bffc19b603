/*
Package logging implements the application log setup and the access log
of the served requests.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, to switch to JSON output,
and to set a common prefix for each log entry. Setting the prefix may be
a good idea when the access log is enabled and its output is the same as
the one of the application log, to make it easier to split the output
for diagnostics.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the duration of the request, the
requested host, the name of the matched route and the selected variant.
The Handler wraps the route table and logs every request it serves.

During initialization, it is possible to redirect the access log output
from the default /dev/stderr to another file, to log JSON entries, or to
completely disable the access log.
*/
package logging

// Package rlog is the library's internal logger: unbuffered, timestamped,
// severity-leveled. Unlike a daemon's logger it never owns a log file — it
// writes to a caller-supplied io.Writer (default os.Stderr), since a
// library has no business rotating files under the caller's feet.
package rlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevTag = [...]byte{sevInfo: 'I', sevWarn: 'W', sevErr: 'E'}

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
	on            = true
)

// SetOutput redirects all log output. Passing nil disables logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	on = w != nil
}

func log(sev severity, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !on {
		return
	}
	now := time.Now()
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(out, "%c%s %s\n", sevTag[sev], now.Format("0102 15:04:05.000000"), msg)
}

func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }

func Infoln(args ...any)    { log(sevInfo, "%s", fmt.Sprintln(args...)) }
func Warningln(args ...any) { log(sevWarn, "%s", fmt.Sprintln(args...)) }
func Errorln(args ...any)   { log(sevErr, "%s", fmt.Sprintln(args...)) }

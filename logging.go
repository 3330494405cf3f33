package taskqueue

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger returns a logrus logger writing to io.Discard, used as
// the zero-config default so embedding a Queue never produces output
// unless WithLogger is supplied.
func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

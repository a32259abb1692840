package service

import "github.com/sirupsen/logrus"

// BestEffort is the outcome of a side-channel write whose failure must not
// fail the surrounding operation. Failures are already logged and counted
// when it is returned; callers may inspect it but need not.
type BestEffort struct {
	Op  string
	Err error
}

func (b BestEffort) OK() bool { return b.Err == nil }

func bestEffort(log logrus.FieldLogger, op string, err error) BestEffort {
	if err != nil {
		bestEffortFailures.WithLabelValues(op).Inc()
		log.WithFields(logrus.Fields{
			"event":         op,
			"status":        "error",
			"error_message": err.Error(),
		}).Warn("best-effort write failed")
	}
	return BestEffort{Op: op, Err: err}
}

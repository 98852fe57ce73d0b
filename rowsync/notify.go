package rowsync

import (
	"github.com/agribenchmark/farmsync/config"
	"github.com/sirupsen/logrus"
)

type Action string

const (
	ActionSubmit Action = "submit"
	ActionRemove Action = "remove"
)

// Outcome is the single user-visible result of one action.
type Outcome struct {
	Action Action
	Page   string
	Scope  string
	// Rows is the number of rows the action covered.
	Rows int
	Err  error
}

func (o Outcome) Success() bool {
	return o.Err == nil
}

type Notifier interface {
	Notify(Outcome)
}

type NotifierFunc func(Outcome)

func (f NotifierFunc) Notify(o Outcome) { f(o) }

// LogNotifier reports outcomes as log lines.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) Notify(o Outcome) {
	logger := n.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	entry := logger.WithFields(logrus.Fields{
		"action": string(o.Action),
		"page":   o.Page,
		"scope":  o.Scope,
		"rows":   o.Rows,
	})
	if o.Err != nil {
		entry.WithError(o.Err).Error(string(o.Action) + " failed")
		return
	}
	entry.Info(string(o.Action) + " succeeded")
}

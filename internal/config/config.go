package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultReminderInterval is how often the reminder scheduler sweeps.
	DefaultReminderInterval = time.Minute

	// DefaultReminderLookahead is how far ahead of a deadline the sweep
	// considers a task due for a reminder.
	DefaultReminderLookahead = 5 * time.Minute

	// DefaultMailWorkers is the number of mail dispatch workers.
	DefaultMailWorkers = 2

	// DefaultQueueSize is the buffer size of the deferred job queue.
	DefaultQueueSize = 100

	// DefaultSMTPTimeout bounds every SMTP dial and conversation so a slow
	// transport cannot occupy a worker indefinitely.
	DefaultSMTPTimeout = 15 * time.Second
)

package session

import "time"

// Timer is a cancellable one-shot task.
type Timer interface {
	// Stop cancels the task, reporting whether it was still pending.
	Stop() bool
}

// Clock supplies the current time and schedules one-shot tasks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock is the wall clock backed by time.AfterFunc.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

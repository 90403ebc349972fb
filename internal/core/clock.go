package core

import "time"

// Clock is the time source a gate measures elapsed time and sleeps with.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is backed by time.Now and time.Sleep.
var SystemClock Clock = systemClock{}

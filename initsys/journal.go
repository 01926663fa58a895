package initsys

import "time"

// Journaler describes an event logger.
type Journaler interface {
	Write(Event) error
}

// JournalReader reads back events previously written by a Journaler, newest
// first. It returns io.EOF once there are no events left.
type JournalReader interface {
	Read() (Event, time.Time, error)
}

type discardJournaler struct{}

// Discard is a Journaler that drops every event.
var Discard Journaler = discardJournaler{}

func (discardJournaler) Write(Event) error { return nil }

// Package audit defines the audit event model and the asynchronous
// dispatcher that forwards events to a caller-supplied sink.
//
// Emission never blocks an authentication operation: events pass through a
// buffered channel serviced by a single goroutine, and with DropIfFull set
// the dispatcher sheds load instead of applying backpressure.
package audit

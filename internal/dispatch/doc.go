// Package dispatch runs the fuzzing worker pool.
//
// A Coordinator owns the state shared by one run: the word source and the
// set of words already dispatched (guarded by one lock so that claiming a
// word and recording it cannot race), the request and error counters, the
// number of active workers and the cancellation flag. It spawns a fixed
// number of workers and one progress reporter, and moves through the states
// Idle, Running, Cancelling and Terminated.
//
// A run is cancelled in three ways: the word source is exhausted, a worker
// fails a request after its retries and errors are not ignored, or the
// parent context is done. The first reason wins. All workers are joined
// before the progress reporter, and Run returns only after both.
package dispatch

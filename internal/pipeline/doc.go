// Package pipeline executes the stages of a run in order.
//
// A run is a sequence of steps over one model.RunReport: the pre-flight
// target and proxy checks, the fuzz or crawl step, and final steps that
// persist and print the report. Main steps stop at the first error. Final
// steps run afterwards in every case, so an aborted or interrupted run is
// still saved and summarized.
package pipeline

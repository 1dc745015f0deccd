// Package queue holds documents waiting for the pipeline. Jobs submitted
// by hand or over HTTP can jump ahead of jobs picked up from a watched
// folder.
package queue

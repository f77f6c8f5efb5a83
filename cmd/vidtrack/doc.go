// Package main hosts the vidtrack CLI entrypoint and command graph.
//
// Most commands are thin HTTP clients of a running daemon: they submit
// videos, poll results, and render job listings and status. The analyze
// command runs the pipeline in-process for one file without a daemon, and
// the daemon command runs the daemon in the foreground.
package main

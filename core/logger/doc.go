// Package logger is a standardized event logging framework for the
// classroom sandbox.
package logger

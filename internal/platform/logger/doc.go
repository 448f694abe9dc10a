// Package logger provides structured logging setup for the library.
package logger

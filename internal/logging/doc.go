// Package logging provides file-based structured logging with rotation for
// von. Logs are JSON lines written to ~/.von/logs/von.log; --debug lowers the
// level to debug and mirrors records to stderr.
package logging

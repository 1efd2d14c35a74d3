// Package logging provides structured logging for docrank. Commands log to
// stderr at the configured level; with --debug, JSON logs are also written to
// a size-rotated file under ~/.docrank/logs/ that `docrank logs` can tail.
package logging

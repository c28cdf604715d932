// Package logging provides file-based logging with rotation for ragengine.
// Every command writes JSON logs to a rotating file under ~/.ragengine/logs/;
// serve writes to the file only, every other command also to stderr.
//
// The level is info by default; the --debug flag raises it to debug.
package logging

// Package constants holds tunables shared across the rproc framework's
// internal packages.
package constants

// MaxNameLength is the maximum length of a printable processor name.
const MaxNameLength = 100

// MaxTraceBindings is the maximum number of trace-buffer resources a
// single processor may hold at once.
const MaxTraceBindings = 2

// FirmwareMagic is the 4-byte magic every firmware container must begin with.
var FirmwareMagic = [4]byte{'R', 'P', 'R', 'C'}

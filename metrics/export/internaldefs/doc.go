// Package internaldefs holds the counter definitions shared between the
// metric exporters. Not part of the public API.
package internaldefs

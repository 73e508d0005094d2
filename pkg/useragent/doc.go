// Package useragent classifies User-Agent headers into browser, OS and device
// class for session diagnostics. It is intentionally coarse: the result is
// shown to support staff, not used for access decisions.
package useragent

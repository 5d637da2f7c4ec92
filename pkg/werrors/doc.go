// Package werrors is the uniform error type shared by every WarpGraph
// package: a stable Code plus an optional wrapped cause and structured
// fields, comparable with errors.Is without needing to match on message
// text. See the error taxonomy in the top-level spec for the full code
// list; this package just declares the sentinels and the wrapper shape.
package werrors

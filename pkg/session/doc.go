// Package session runs programs on their own pseudo terminal, tracks the live
// ones and executes batches of them on a bounded worker pool.
package session

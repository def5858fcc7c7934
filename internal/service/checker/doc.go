// Package checker polls a single alert until it reaches a target status.
package checker

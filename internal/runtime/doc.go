// Package runtime implements the panel protocol: fan the question out to
// every registered expert, wait for all of them, and merge their opinions
// with one synthesis call.
package runtime

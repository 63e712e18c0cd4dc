// Command artcache resolves artwork narrations against the shared store and
// manages the device-local recent cache.
package main

// Package service is the only write entry point of the engine. It wraps
// the order book with logging and metrics, and provides the
// trade handlers fed by the tradefeed dispatcher: console log, journal
// and last-trade cache.
package service

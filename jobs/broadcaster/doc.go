// Package broadcaster implements the background job that periodically
// scans the trade journal and publishes pending trades to Kafka.
package broadcaster

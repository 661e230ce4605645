// Package orderbook implements price-time priority matching for a fixed
// space of instruments. Each instrument has a bid tree and an ask tree of
// price levels; each level is a FIFO queue, so orders at one price fill
// in arrival order.
//
// Book is single-writer. OrderBook gives every instrument its own mutex,
// so submissions to one instrument are fully serialized while different
// instruments match in parallel.
package orderbook

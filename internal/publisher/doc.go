// Package publisher fans appended history events out to an event feed.
//
// KafkaPublisher writes one message per event keyed by address, so a
// consumer sees the events of one address in order. NopPublisher is used
// when no brokers are configured.
package publisher

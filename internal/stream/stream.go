// Package stream defines the domain types shared between the demand-driven
// producer and the Redis Streams client: messages, acknowledgment context,
// demand accounting, and the client contract.
package stream

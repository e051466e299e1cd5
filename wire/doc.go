// Package wire holds the street-network backend messages, their binary
// encoding and the transports that carry them.
//
// Messages are encoded field by field with protowire, so the encoding is
// compatible with protobuf readers using the same field numbers; unknown
// fields are skipped on decode. SocketTransport exchanges one length-prefixed
// frame each way per request over TCP.
package wire

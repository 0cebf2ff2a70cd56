// Package sonic manages bidirectional streaming speech sessions against
// the Amazon Nova Sonic runtime: a session registry, per-session
// outbound event queues, audio ingestion buffering, the duplex stream
// driver with tool dispatch, an event handler registry, and ordered
// session teardown.
//
// The remote side is abstracted behind Transport; pkg/sonic/bedrock
// provides the production implementation.
package sonic

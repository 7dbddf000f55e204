// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single WebSocket connection to the gateway
//   - Drives connection state from one event goroutine (Disconnected, Connecting, Open,
//     Closing, Reconnecting)
//   - Reconnects forever with exponential backoff (1s doubling to 32s by default)
//   - Serializes concurrent sends onto the socket
//   - Detects dead connections with a ping/pong heartbeat
package connection

// Package protocol implements the gateway frame format.
//
// Outbound request frames are the request code, the decimal sequence id and a JSON array,
// concatenated without separators:
//
//	42<seq>["get",{"method":"get","data":{},"url":"/request/?collection=<id>","headers":{...}}]
//
// Response frames carry the response marker, the same sequence id and a JSON value:
//
//	43<seq>[{...}]
//
// The sequence id never contains '[', so the JSON body always starts at the first '['.
package protocol

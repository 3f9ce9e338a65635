// Package rpc carries topic messages over HTTP using Connect.
//
// Both sides speak a single unary procedure, ExchangeProcedure, whose request
// and reply are google.protobuf.Struct values:
//
//	request: {"seq": n, "id": <message id>, "topic": <topic>, "data": <payload>}
//	reply:   {"seq": n, "reply_to": <message id>, "topic": <topic>, "data": <payload>, "error": <text>}
//
// The client stamps every request with a sequence number and rejects any
// reply that echoes a different one. On the server side NewHandler adapts a
// hub.Handler to the procedure, so the same responder can be mounted in-process
// on a hub or remotely behind an HTTP listener.
package rpc

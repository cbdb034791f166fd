// Package yemot lets a yemot IVR call flow be written as one linear
// function, even though the platform delivers the call as a sequence of
// independent HTTP requests - one per keypress, utterance, recording or
// hangup - correlated only by ApiCallId.
//
// A Router reconstructs the logical call: the first request for an unseen
// id starts the registered CallHandler in its own goroutine, and every
// operation that needs the caller's answer (Read) sends the vendor's
// response line and parks the goroutine until the next request for that id
// arrives, a hangup is flagged, or the resume timeout elapses. Terminal
// operations (IDListMessage, GoToFolder, RoutingYemot, Hangup) answer the
// open request and return an EndError the handler passes back up, which
// the router treats as the call's normal conclusion.
package yemot

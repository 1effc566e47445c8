// Package rendezvous implements the session pairing and turn-exchange core.
//
// A Session pairs two independent clients that share a session id. Neither
// knows the other exists; each believes it is talking to a model. The first
// request on a new session becomes Side A and its utterance is discarded (the
// handshake ping). The second becomes Side B; its utterance answers A's
// pending request. From then on the two sides alternate through a pair of
// single-slot rendezvous channels: every Exchange call deposits the caller's
// utterance for the peer and suspends until the peer's next utterance
// arrives or the budget elapses.
//
// The Manager is the directory of sessions: lazy creation keyed by session
// id, max-sessions admission control with optional idle-most eviction, and a
// cron-driven sweep that closes sessions idle past their TTL. All state is
// process memory; nothing survives a restart.
package rendezvous

// Package protocols maps supported wire formats onto the internal
// request/response envelope.
//
// An adapter is a pair of pure codec functions over one wire format: Decode
// turns a raw body into an Envelope, Encode turns a response envelope back
// into that format, and EncodeStream emits the same response as a
// Server-Sent-Events stream. Two adapters ship: the OpenAI Chat Completions
// shape and the Anthropic Messages shape. Both carry the session id in the
// request's model field; only the last user message is forwarded between
// peers, everything else is accepted and discarded.
//
// Streaming is cosmetic chunking: the peer always delivers a whole utterance,
// and the adapter splits it into whitespace-preserving segments so that the
// concatenated deltas reproduce the utterance exactly.
package protocols

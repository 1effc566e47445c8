// Switchboard is a stateful bidirectional HTTP rendezvous proxy.
//
// It pairs two independent chat clients that share a session id (carried in
// the model field) and forwards one utterance at a time between them. Each
// client believes it is talking to a model behind an OpenAI-compatible Chat
// Completions endpoint or an Anthropic-compatible Messages endpoint; the
// proxy stores no conversational state and implements no model.
//
// Usage:
//
//	# Start with default configuration
//	switchboard run
//
//	# Start with a configuration file
//	switchboard run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	switchboard validate --config /path/to/config.yaml
//
//	# Show version information
//	switchboard version
package main

func main() {
	Execute()
}

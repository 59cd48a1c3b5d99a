// Package exec runs natural-language instructions against a set of
// command-line capabilities with the help of a language model.
//
// # Overview
//
// An [Exec] holds the shared pieces: the capability registry, the model
// backend, the resolver that provisions missing executables, and the runner
// that executes them under bounds. Each [Session] owns one conversation and a
// bounded [History].
//
// A round started by [Session.RunInstruction] moves through these states:
//
//   - querying: the instruction is appended and the model is asked what to run
//   - executing: each requested capability is resolved and run, in order;
//     a failing call does not stop the ones after it
//   - analyzing: all results are sent back in one turn for interpretation
//   - done: the analysis is appended and the round is recorded in history
//
// A reply without tool calls ends the round after querying. A model failure
// or a canceled context aborts the round; the conversation is restored and
// nothing is recorded.
//
// # Basic Usage
//
//	registry := capability.NewRegistry(capability.WithCatalog(capability.NewCatalog("")))
//	_ = registry.RegisterAll(capability.Defaults())
//
//	client := dialogue.NewClient(dialogue.ClientConfig{APIKey: key})
//	model, _ := dialogue.NewAdapter(dialogue.AdapterConfig{
//	    Completer:  client,
//	    Credential: client.CheckCredential,
//	})
//
//	engine, err := exec.New(exec.Options{Registry: registry, Model: model})
//	session := engine.NewSession("")
//	outcome, err := session.RunInstruction(ctx, "Check DNS for example.com")
//
// # Sessions
//
// [Sessions] keeps a bounded set of named sessions for front ends that serve
// several callers.
package exec

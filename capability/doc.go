// Package capability holds the registry of command-line capabilities a model
// may invoke.
//
// Each capability is described by a [Descriptor]: the executable to run, the
// system package that provides it, a risk class, and a table of default
// arguments. The [Registry] rejects conflicting registrations and hands out
// copies, so a descriptor never changes after it has been registered.
//
// A [Catalog] mirrors registered capabilities into a tooldiscovery index and
// tooldoc store so they can be searched and described like any other tool.
package capability

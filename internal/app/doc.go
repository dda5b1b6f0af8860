// Package app contains the core application logic. It assembles the
// capability catalog, the scenario registry, the settings store and the
// orchestrator from a bot profile, and drives the resulting program with a
// fixed-interval ticker, decoupled from any specific entrypoint like a CLI.
package app

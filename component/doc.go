// Package component defines the lifecycle interface shared by the
// long-running parts of a demandflow service, such as executor pools and
// telemetry providers, and a registry that starts them in order and stops
// them in reverse.
package component

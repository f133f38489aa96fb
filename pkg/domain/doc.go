/*
Package domain contains the core models of the stepflow engine.

It defines the entities shared by the run loop, the registries and the
transports. The package is kept free of I/O and persistence.

# Key Entities

  - State: the mutable record threaded through every step (outputs, log, done flag).
  - LogEntry: fixed-shape structured log record (timestamp, node, level, message, preview).
  - Step: the uniform unit of work, whether it completes immediately or suspends.
  - Graph: immutable named steps plus single-successor edges and a start node.
  - Run: the registry record holding the latest snapshot and the compact log.
*/
package domain

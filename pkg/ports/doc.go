/*
Package ports defines the driven ports (interfaces) for the stepflow engine.

These interfaces decouple the run loop from the storage backends that hold
graphs and runs, so the same engine works with process memory or Redis.

# Key Interfaces

  - GraphRegistry: stores built graphs under generated identifiers.
  - RunStore: the run registry (latest state snapshot and compact log per run).
*/
package ports

// Package harness runs declarative query scenarios for conformance
// testing. A scenario is a YAML file naming a schema, rows, a
// condition, and the expected outcome; the harness executes it through
// the full pipeline and checks expectations, optionally snapshotting
// the run as canonical JSON against a golden file.
package harness

// Package internal holds the analysis engine for nopanic.
//
// # Architecture Overview
//
//	     +--------------+        +-----------------+
//	     |  analyzer.go |        | cmd/nopanicrun  |  Entry points
//	     +------+-------+        +--------+--------+
//	            |                         |
//	            +------------+------------+
//	                         |
//	                +--------v---------+
//	                |      engine      |  Worklist over units
//	                +--------+---------+
//	                         |
//	      +------------------+-------------------+
//	      |                  |                   |
//	+-----v------+   +-------v--------+   +------v-------+
//	|  region    |   |   traverse     |   |  procparam   |
//	| (scanner)  |   | (call graph)   |   | (callbacks)  |
//	+-----+------+   +-------+--------+   +------+-------+
//	      |                  |                   |
//	      +------------------+-------------------+
//	                         |
//	   +----------+----------+----------+----------+
//	   |          |          |          |          |
//	+--v---+  +---v----+ +---v---+  +---v----+ +---v-------+
//	|model |  | funcid | | sink  |  | report | | directive |
//	+--+---+  +--------+ +-------+  +--------+ +-----------+
//	   |
//	+--v-----+  +--------+  +--------+
//	| loader |  | depmap |  | config |
//	+--------+  +--------+  +--------+
//
// # Execution Flow
//
//  1. [engine.Analyzer.Run] loads the target unit through a [model.Provider]
//  2. [region.Scan] finds the //nopanic:deny blocks of the target
//  3. [traverse.Traverser] walks every region: local calls are expanded,
//     calls of sinks become findings, calls into other units become leaves
//  4. Leaves are bucketed by unit; each bucket loads its unit and resumes
//     the leaves there, possibly producing more leaves
//  5. Every unit the dependency map names is loaded once so that the
//     callback parameters of its regions are known
//  6. [procparam.Sweep] checks the arguments passed for those parameters in
//     every loaded unit, and the buckets are drained again
//  7. Findings and suppressions go through a [report.Collector]
//
// # Units
//
// A unit is one Go package, loaded and type-checked on its own. Functions
// are identified across units by [funcid.ID]; a unit is never asked about
// objects of another load.
package internal

/*
Package paramid provides the structured representation of parameter paths,
the hierarchical names every value in the registry is stored under.

The canonical format is a dot-separated sequence of segments, each an
identifier with an optional index, e.g. `topology.b3` or
`gauge.couplings[2].running`.

All parsing and formatting lives here so the registry, the loaders, and the
unit contract agree on exactly one spelling of a path.
*/
package paramid

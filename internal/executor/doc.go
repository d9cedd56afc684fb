// Package executor runs GraphQL operations breadth first so that every
// remote call of one response depth can be sent as a single batch.
//
// Fields come in two flavors, decided by schema.Field.Async:
//
//   - Sync fields are resolved on the spot through Runtime.ResolveSync and
//     completed immediately. Descending through them never adds depth.
//   - Async fields are queued. When the current depth has been expanded, the
//     queue is handed to Runtime.BatchResolveAsync in one call, the results
//     are completed, and whatever async fields those completions reach form
//     the next batch.
//
// A response with async depth d therefore costs exactly d batch calls for a
// query. Mutations differ: their root fields run one after another, each
// drained with its whole subtree before the next starts.
//
// Completion follows the GraphQL rules for lists, leaves, objects and
// abstract types. A null in a Non-Null position is reported once and
// replaces the nearest nullable enclosing position; queued work below that
// position is dropped before the next batch. When no nullable position
// encloses it, the whole data is null.
//
// Errors are collected with their response paths and do not stop sibling
// fields. An error exposing Extensions() map[string]any keeps those
// extensions in the result.
//
// Async results may return Args. Async fields below such a result receive
// them as AsyncResolveTask.Inherited, the nearest ancestor winning. This is
// how a downstream call passes its arguments to the calls nested under it.
package executor

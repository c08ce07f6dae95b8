// Package planner turns a sanitization result into a repair plan.
//
// The plan is deterministic: removals come first, then downloads, each group
// ordered by relative path. Planning never touches the network or writes to
// the install; executing the plan is left to the caller.
//
// Key responsibilities:
//   - Map mismatched add entries to download operations with resolved URLs
//   - Map lingering delete entries to remove operations
//   - Reject entries whose path would escape the install root
package planner

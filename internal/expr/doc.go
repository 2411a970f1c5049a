// Package expr defines the expression tree produced by parsing filter and
// order-by text, along with the rewrite passes that prepare a tree for SQL
// generation.
//
// Nodes are immutable: a rewrite never mutates an existing node, it allocates
// a replacement. The Rewrite fold rebuilds a parent only when one of its
// children actually changed, so passes that touch nothing return the original
// tree untouched.
//
// Two passes run before code generation:
//
//   - Booleanize ensures every operand in a logical position is a genuine
//     boolean expression in the target dialect (Transact-SQL has no boolean
//     value type, only predicates).
//   - ConvertTypes rewrites string literals compared against binary-typed
//     columns into their base64-decoded byte values.
package expr

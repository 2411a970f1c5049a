// Package sqlgen formats table queries as parameterized T-SQL.
//
// Formatting is a single pass over the query: the filter expression is
// rewritten into boolean-valued form, binary comparisons get their base64
// operands decoded, and the result is emitted as one SELECT statement.
// Values never appear in the SQL text; every constant becomes a positional
// @pN parameter. Paging uses TOP when only a row limit is set and a
// ROW_NUMBER window when rows are skipped. An inline count request appends
// a companion COUNT(*) statement over the same filter.
package sqlgen

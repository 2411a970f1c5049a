// Package parse turns filter and order-by text into expression trees.
//
// The grammar is the OData-style query language: word operators (eq, ne, gt,
// ge, lt, le, and, or, not, add, sub, mul, div, mod), quoted string literals
// with doubled-quote escaping, numeric literals with legacy type suffixes,
// the keyword literals true/false/null, typed datetime'...' literals, and
// function calls resolved against a static table of string, date, and math
// functions.
//
// Every failure is a *SyntaxError carrying the input text and the byte
// offset at which parsing stopped. Parsing performs no I/O.
package parse

// Package framing reassembles discrete JSON objects out of a raw,
// delimiter-free byte stream.
//
// The device emits back-to-back object literals with no separator, so
// object boundaries are inferred from brace positions inside a growing
// buffer. The scan is an index-pairing heuristic, not a full tokenizer:
// it assumes braces never appear inside string values. A hardened
// rework would track string/escape state in an incremental tokenizer
// while keeping the same external contract.
package framing

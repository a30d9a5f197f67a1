// Package oracle wraps language-model calls behind a single contract: given
// instructions, a message list and optionally an expected output schema, an
// Oracle returns a parsed, schema-conforming result, tool calls, or plain
// text, or fails with ModelError / TimeoutError. Engines treat the oracle as
// a black box and never retry; retry policy belongs to a provider adapter if
// anywhere.
//
// Provider adapters live in subpackages (openai, anthropic). ScriptedOracle
// is the deterministic in-memory implementation used by tests and examples.
package oracle

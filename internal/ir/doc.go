// Package ir provides the identifier types and canonical encodings shared by
// every runtime package.
//
// ir imports nothing internal except timing. Identifiers are dense integers
// assigned once during assembly and read-only afterwards.
//
// Key constraints:
//   - ReactionKey is the execution order key: (level, reactor, local id)
//   - Canonical JSON has sorted keys and NFC strings, and rejects floats
//   - Digests are domain separated
package ir

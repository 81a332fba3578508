// SPDX-License-Identifier: Apache-2.0

// Package chat implements the conversation domain of colloquy: the five
// fixed participant roles, the append-only transcript, the deterministic
// next-speaker dispatcher, and the sequential group-chat turn loop that
// binds them together.
//
// Routing between speakers is driven by sentinel phrases ("Dear engineer",
// "Dear reviewer", ...) embedded in free-form model output. This is a
// deliberately preserved string protocol: it is fragile, but it is the
// documented behavior of the workflow and the parity tests pin it down
// exactly. Speakers that want structured routing can set
// Message.Directive, which takes precedence over the sentinel scan.
package chat

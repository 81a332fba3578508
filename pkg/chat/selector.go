package chat

import "strings"

// SelectorFunc picks the next speaker from the last speaker and a
// read-only view of the transcript. Implementations must be total: they
// always return a valid role and never fail.
type SelectorFunc func(last Role, transcript *Transcript) Role

// sentinel binds a routing phrase to its destination role. Matching is a
// case-sensitive substring check, evaluated in slice order; the first hit
// wins, so earlier entries take priority when several phrases co-occur in
// one message.
type sentinel struct {
	phrase string
	next   Role
}

var sentinels = []sentinel{
	{"Dear user", RoleAdmin},
	{"Dear planner", RolePlanner},
	{"Dear engineer", RoleEngineer},
	{"Dear reviewer", RoleReviewer},
	{"Dear executor", RoleExecutor},
}

// failureMarker is the executor's exit-code report for a failed run.
const failureMarker = "exitcode: 1"

// SelectSpeaker is the deterministic next-speaker rule:
//
//  1. With at most one message on record, the planner bootstraps the
//     conversation.
//  2. The last message is scanned for sentinel phrases in fixed priority
//     order (user, planner, engineer, reviewer, executor).
//  3. If the executor spoke last without a sentinel, a reported failure
//     exit code routes back to the engineer for a fix; success goes to
//     the planner.
//  4. Anything else falls through to the planner.
func SelectSpeaker(last Role, transcript *Transcript) Role {
	if transcript == nil || transcript.Len() <= 1 {
		return RolePlanner
	}

	msg, _ := transcript.Last()

	for _, s := range sentinels {
		if strings.Contains(msg.Content, s.phrase) {
			return s.next
		}
	}

	if last == RoleExecutor {
		if strings.Contains(msg.Content, failureMarker) {
			return RoleEngineer
		}
		return RolePlanner
	}

	return RolePlanner
}

// SelectSpeakerStructured is the hardened variant: a message carrying an
// explicit Directive short-circuits the sentinel scan. Sentinel behavior
// is otherwise identical, so transcripts produced under either selector
// route the same way unless a speaker opts into directives.
func SelectSpeakerStructured(last Role, transcript *Transcript) Role {
	if transcript != nil && transcript.Len() > 1 {
		if msg, ok := transcript.Last(); ok && msg.Directive.Valid() {
			return msg.Directive
		}
	}
	return SelectSpeaker(last, transcript)
}

// Ensure both selectors satisfy the callback contract.
var (
	_ SelectorFunc = SelectSpeaker
	_ SelectorFunc = SelectSpeakerStructured
)

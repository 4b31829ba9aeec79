// Package tokens owns the session token lifecycle: issuance, validation,
// rotation, replay detection, revocation, and the background purge.
//
// Both token classes are HS256 JWTs carrying the same claim set but
// signed with distinct secrets, so leaking one key cannot forge the
// other class. Access tokens live for minutes and are validated purely
// locally. Refresh tokens live for days and are additionally checked
// against the store on every use, because the store is where server-side
// logout and mass revocation live.
//
// # Rotation and replay
//
// Rotation inserts the replacement row first and revokes the old row
// only when the insert was genuinely new. The insert is atomic
// insert-or-detect-duplicate (unique-constraint backed, never
// check-then-insert), which makes duplicate network retries of the same
// rotation converge on one surviving token without errors.
//
// A duplicate insert during login means something else entirely: the
// exact token value being issued already validates for another session,
// the canonical signature of a stolen token. That path revokes every
// session of the user synchronously and surfaces ErrReuseDetected.
package tokens

// Package audit records authentication events and cross-tenant accesses
// on a best-effort basis. Recording never blocks or fails the primary
// authentication flow: records are queued to a background worker that
// batches writes, storage failures are logged and swallowed, and a full
// queue drops records rather than stalling a login.
//
// Cross-tenant access records are the audit trail that makes permitted
// superadmin tenant-crossing acceptable; every such access is recorded
// by the authorization gate.
package audit

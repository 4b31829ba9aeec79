// Package accesslevel computes hierarchical access levels from role
// state.
//
// Authorization here is numeric, not nominal: an operation declares a
// set of allowed role names, the resolver reduces that set to the
// minimum level among matching active roles, and a caller passes when
// their maximum held level meets or exceeds it. A level-99 platform
// role therefore dominates a level-50 admin role without either side
// enumerating the other.
//
// Two edges are deliberate: an empty role set resolves to level 0
// (always satisfied), and a role set that matches nothing resolves to
// LevelUnsatisfiable so misconfigured routes deny instead of failing
// open. Store errors likewise surface as ErrStoreUnavailable rather
// than degrading to any default level.
package accesslevel

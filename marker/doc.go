// Package marker provides named, hierarchical tags for log records.
//
// A [Marker] categorizes a log event independently of its severity. Markers
// form a shallow parent/child hierarchy: a marker contains itself and its
// direct children, but never its grandchildren. Equality is by name, so two
// markers created separately with the same name are interchangeable for
// matching purposes.
//
// Markers are usually obtained from a [Registry], which hands out one shared
// instance per name:
//
//	reg := marker.NewRegistry()
//	auth, _ := reg.Get("auth")
//	failure, _ := reg.Get("login_failure")
//	_ = auth.AddChild(failure)
//
// Attach a marker to a log call with [Attr], or use a [Logger]:
//
//	logger.Info("login failed", marker.Attr(failure))
//
//	ml := marker.NewLogger(logger)
//	_ = ml.Warn(ctx, failure, "login failed", "user", name)
//
// Downstream, [Match] decides whether a record's marker satisfies one or more
// targets, and [Filter] drops records that do not match:
//
//	handler := marker.NewFilter(next, []marker.Marker{auth})
//
// # Concurrency
//
// [Registry] is safe for concurrent use. A [BaseMarker]'s children are not
// synchronized: callers that mutate a shared marker from several goroutines
// must provide their own locking. Matching only reads, so declaring the
// hierarchy at startup and matching afterwards needs no locks.
package marker

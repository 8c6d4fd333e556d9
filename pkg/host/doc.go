// Package host defines the boundary between the timeline core and the
// application that owns the records.
//
// # Adapter
//
// An [Adapter] loads items and persists date changes. The core never talks
// to storage directly: it calls [Adapter.Commit] when a drag ends and
// treats any error as a rejection. Errors should be COMMIT_FAILURE values
// (see [errors.CommitFailed]) with one of the reasons:
//
//   - validation_rejected: the host refused the new bounds
//   - concurrent_modification: the record changed since it was loaded
//   - transport_failure: the change may not have reached storage
//   - not_found: the record no longer exists
//
// Untyped errors are treated as transport failures.
//
// # Optimistic Concurrency
//
// Stored records carry a monotonically increasing version. Adapters
// remember the version seen at load time in a [Versions] table and reject
// a commit whose stored version has moved on. A successful commit advances
// both the stored and the remembered version.
//
// # Field Mapping
//
// A [FieldMap] names the columns, hash fields or document keys holding
// each attribute. The defaults (name, start_date, end_date) match the
// conventional schema of project-task records.
//
// # Drivers
//
// Concrete adapters live in subpackages (memory, sqlite, redis, mongo,
// ics). [Drivers] maps a driver name to a constructor so a config file can
// select one; callers build the table explicitly at startup.
//
// [errors.CommitFailed]: github.com/matzehuels/gantt/pkg/errors.CommitFailed
package host

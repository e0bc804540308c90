// Package location provides the shared record types for loctrack.
//
// This package contains type definitions, the error taxonomy and the
// display formatters. All other internal packages import location;
// location imports nothing internal.
//
// Key design constraints:
//   - Sample IDs are assigned by the store, never by callers
//   - Timestamps are epoch milliseconds supplied by the position source
//     and are NOT assumed to be monotonic
//   - Accuracy is optional (nil pointer) and serializes as JSON null
//   - All JSON tags use snake_case
package location

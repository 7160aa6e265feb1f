// Package http exposes the maintenance schedule registry over JSON.
//
// The router exposes the following endpoints:
//   - GET /api/schedules: query the registry. Parameters q, property_id, category,
//     priority, employee_id, active, from, to, recurrence and repeatable tag are
//     combined with AND. Results are ordered by next service date.
//   - POST /api/schedules, GET/PATCH/DELETE /api/schedules/{id}: schedule CRUD
//     exchanging the `scheduleDTO` payload defined in dto.go. PATCH never changes the
//     next service date unless it is supplied.
//   - POST /api/schedules/{id}/complete: record a performed service and advance the
//     schedule. Body: {"actualCost"} (optional).
//   - POST /api/schedules/{id}/reproject: recompute the next service date after a
//     pattern edit.
//   - GET /api/schedules/{id}/preview?count=N: upcoming service dates.
//   - GET /api/statistics: registry aggregates.
//   - GET /api/calendar and GET /calendar.ics: materialized events for the window
//     from/to, filtered by employee_id, property_id and category, with employee
//     conflicts reported alongside the JSON form.
//   - GET /healthz and the configured metrics path.
//
// The caller is identified by the X-User-ID header, which only stamps audit fields.
package http

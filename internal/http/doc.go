// Package http is the JSON adapter over the event scheduling core. It decodes
// loosely typed request bodies into strict service inputs at the boundary,
// translates the application error taxonomy into HTTP statuses, and projects
// stored UTC instants into civil display times for the weekly view.
package http

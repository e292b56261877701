// Package http implements the HTTP handlers for the incident API.
// Handlers stay thin: they bind filter parameters from the query
// string, delegate to the dataset service, and render JSON (or CSV
// for the export endpoint).
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → DatasetService → Pipeline
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/validation_error",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "unknown state code \"ZZ\"",
//	    "trace_id": "..."
//	}
package http

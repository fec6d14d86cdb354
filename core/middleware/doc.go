// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation (X-API-Key header or Bearer token).
//   - rayid: generates a unique request id (RayID) for every incoming request,
//     stores it in the context locals and echoes it in the response headers.
//
// These middleware components are registered globally in the start command.
package middleware

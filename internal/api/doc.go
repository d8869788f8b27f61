// Package api adapts the review engine to HTTP. Handlers translate query,
// form and JSON parameters into service calls and render the engine's
// payloads; identity and trace IDs come from the middleware package.
package api

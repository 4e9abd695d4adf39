/*
Package handlers binds registry.Service operations to HTTP routes.

Every route decodes its input, calls the service, and writes either a JSON
response or an api.ErrorResponse whose status and code come from
api.ErrorStatus. Mutating routes authenticate their caller with
identity.CallerFromRequest before decoding the body; read routes are public.

Each request is reported to an optional Observer, which the server backs with
Prometheus metrics.
*/
package handlers

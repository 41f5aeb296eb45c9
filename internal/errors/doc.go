// Package errors provides structured errors for rpg-codex.
//
// Errors carry a Code, a message, an optional cause and free-form metadata.
// Lower layers (data source client, repositories) return coded errors; the
// fetch gateway absorbs them, and the HTTP shell maps whatever reaches it with
// Code.HTTPStatus.
//
// # Basic Usage
//
//	err := errors.NotFoundf("route %s not found", path)
//	err := errors.Unavailable("data source returned 503").
//	    WithMeta("type", "creatures").
//	    WithMeta("status", 503)
//
// Wrapping keeps the code of a coded cause:
//
//	if err := repo.Set(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to persist filters")
//	}
//
// # Validation
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("base_url", cfg.BaseURL, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
//
// # Layer Guidelines
//
// Clients and repositories:
//   - Return NotFound / Unavailable / InvalidArgument with the key or type in metadata
//
// Gateway, store and router:
//   - Absorb transport failures; only programmer errors (unknown data type,
//     rejected state transition) escape to the caller
//
// Handlers:
//   - Convert with GetCode(err).HTTPStatus() and log internal errors
package errors

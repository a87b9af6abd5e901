// Package core provides the business logic for importing card inventory.
//
// This package holds the import pipeline independent of any transport. It
// is driven by the web handlers and talks to the card catalog only through
// the [CatalogAPI] interface, so tests can run it against in-memory fakes.
//
// # Pipeline
//
// An import moves through three stages:
//
//  1. Parse: [ParseCollectionCSV], [ParseWishlistCSV] or [ParseDecklist]
//     turn raw input into rows plus per-row [ParseError] values. Row 0
//     errors are file-level.
//  2. Preview: [BuildPreview] resolves every distinct card name with one
//     catalog call and wraps each row in a [PreviewRow] that is ready, not
//     found, or invalid. Users can point rows at another printing with
//     [Preview.ApplyOverride].
//  3. Commit: [RunImport] sends ready rows to the store, in one call for
//     small imports or in sequential windows otherwise, reporting
//     [BatchProgress] before each window. A failed window marks its rows
//     failed and the run continues.
//
// # Sessions
//
// [Service] keeps each preview in a session keyed by UUID between the
// preview request and the commit. A session runs at most one commit;
// overrides and discards are refused while it is committing. A global
// [CommitLimiter] caps concurrent commits, and finished commits are
// recorded through a [HistoryStore].
//
// # Errors
//
// Operations return the sentinel errors in errors.go, wrapped with context.
// [MapError] turns any error into a [UserMessage] with a support code for
// display.
package core

// Package errors provides the classified error primitives used across docsite.
//
// Every failure the content pipeline reports carries a category (what kind of
// problem), a severity (whether the run can continue) and structured context
// (example, locale, path) so the offending source file can be located.
//
//   - ErrorCategory: broad classification (config, filesystem, docs, git, ...)
//   - ErrorSeverity: fatal stops the run, error skips one file, warning only reports
//   - ClassifiedError: the structured error value
//   - ErrorBuilder: fluent constructor
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryDocs, "missing title").
//		WithContext("example", name).
//		WithContext("path", path).
//		Build()
package errors

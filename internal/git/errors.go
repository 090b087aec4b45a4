package git

import (
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into ClassifiedErrors. Network
// failures are retryable; authentication, missing repositories and
// unsupported protocols need user action.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := errors.WrapError(err, errors.CategoryGit, "git "+op+" failed").
		WithContext("op", op).
		WithContext("url", url)

	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") ||
		strings.Contains(l, "not authorized") || strings.Contains(l, "invalid credentials"):
		builder.WithRetry(errors.RetryUserAction)
	case strings.Contains(l, "repository not found") || strings.Contains(l, "does not exist") ||
		strings.Contains(l, "couldn't find remote ref"):
		builder = errors.WrapError(err, errors.CategoryNotFound, "git "+op+" failed").
			WithContext("op", op).WithContext("url", url).WithRetry(errors.RetryUserAction)
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported") ||
		strings.Contains(l, "unsupported scheme"):
		builder = errors.WrapError(err, errors.CategoryConfig, "git "+op+" failed").
			WithContext("op", op).WithContext("url", url).WithRetry(errors.RetryUserAction)
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "timeout") || strings.Contains(l, "no route to host") ||
		strings.Contains(l, "connection refused") || strings.Contains(l, "rate limit") ||
		strings.Contains(l, "too many requests"):
		builder = errors.WrapError(err, errors.CategoryNetwork, "git "+op+" failed").
			WithContext("op", op).WithContext("url", url).Retryable()
	}
	return builder.Build()
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}

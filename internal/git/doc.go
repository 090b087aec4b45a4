// Package git keeps a local checkout of the documented project in sync with
// its remote: the first sync clones, later syncs fetch and hard-reset the
// configured branch to the remote head.
package git

// Package workspace owns the output tree of a build: it clears the
// directories the pipeline regenerates and tracks generated docs pages in a
// manifest so pages whose source disappeared do not survive a rebuild.
package workspace

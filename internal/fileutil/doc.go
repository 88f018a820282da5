// Package fileutil moves finished artifacts out of scratch space, falling
// back to a verified copy when scratch and output live on different
// filesystems.
package fileutil

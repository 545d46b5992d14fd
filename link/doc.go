// Package link materializes a source directory tree at a destination using
// the cheapest available mechanism (copy-on-write reflink, hard link,
// symlink, or byte copy), cascading to the next mechanism on a per-file
// basis when the filesystem doesn't support the requested one.
package link

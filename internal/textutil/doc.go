// Package textutil sanitizes names derived from source videos so they are
// safe to use as file names in scratch and output directories.
package textutil

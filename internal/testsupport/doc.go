// Package testsupport holds helpers shared by package tests: temp-dir backed
// configs, stub external binaries, sized fixture files, and an opened history
// store.
package testsupport

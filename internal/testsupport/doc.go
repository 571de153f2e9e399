// Package testsupport holds helpers shared by package tests: temp-directory
// configs, stub binaries on PATH, fixture files, and an opened catalog.
package testsupport

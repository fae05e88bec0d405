// Package testsupport holds builders and fakes shared by package tests:
// temp-dir backed configs, vendor page fixtures, and a canned fetcher.
package testsupport

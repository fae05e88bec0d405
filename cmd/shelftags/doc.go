// Package main hosts the shelftags CLI.
//
// The command tree runs the shelf tag pipeline for a single Goodreads book
// outside any host application, prints the configured shelf mapping, and
// scaffolds or inspects the configuration file. Behaviour lives in the
// internal packages; commands here only resolve configuration, set up
// logging, and render output.
package main

// Package config resolves process settings for dasny-bids.
//
// Settings are layered, lowest precedence first: built-in defaults, an
// optional YAML config file, DASNY_ environment variables (including those
// loaded from a .env file), and command-line flags bound by the cli package.
package config

// Package fuzzflags defines the one pflag-based flag set this module carries
// (SPEC_FULL.md §2): a small property-test/benchmark harness configuration,
// never a QCIR-reading CLI. Mirrors the teacher's cmd/olm/main.go idiom of
// package-level pflag vars parsed once by the process entry point, trimmed
// to the three knobs the random small-circuit generator needs.
package fuzzflags

import "github.com/spf13/pflag"

// Config holds the parsed random small-circuit generator parameters.
type Config struct {
	Seed  int64
	Vars  int
	Depth int
}

// Register binds Config's fields onto fs and returns the Config, matching
// the teacher's "flags defined globally so they also appear on the test
// binary" pattern, but scoped to a caller-supplied FlagSet instead of
// pflag.CommandLine so package tests can register it repeatedly without
// colliding.
func Register(fs *pflag.FlagSet) *Config {
	cfg := &Config{}
	fs.Int64Var(&cfg.Seed, "seed", 1, "PRNG seed for the random small-circuit generator")
	fs.IntVar(&cfg.Vars, "vars", 20, "maximum number of free variables per generated circuit")
	fs.IntVar(&cfg.Depth, "depth", 4, "maximum quantifier-scope depth per generated circuit")
	return cfg
}

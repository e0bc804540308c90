// Package config loads loctrack configuration.
//
// Configuration is read from a YAML, JSON or CUE file, picked by extension.
// Every format starts from the same defaults and is checked with the same
// validation rules. CUE files are additionally unified with an embedded
// schema (schema.cue), which carries the defaults and the value constraints.
package config

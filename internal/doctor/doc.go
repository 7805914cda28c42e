// Package doctor diagnoses a hostwatch setup: the config file, each host's
// API key source and SSH tunnel, and whether every metric endpoint answers.
package doctor

// Package output renders authrelay-cli results as a table, JSON or YAML.
//
// Values that implement Tabular render as aligned columns in table mode;
// anything else falls back to JSON.
package output

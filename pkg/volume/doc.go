// Package volume defines the scalar volume consumed by the gradient builder.
// A volume is a regular lattice of scalar samples with unit spacing, stored
// row-major with x varying fastest.
package volume

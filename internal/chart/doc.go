// Package chart draws the trailing outage window of one address as a PNG
// step chart with go-chart: high while power is off, low while it is on.
// The bundled Roboto face covers the Ukrainian labels.
package chart

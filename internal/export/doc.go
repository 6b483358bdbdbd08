// Package export writes simulation and estimation output: wide result CSV,
// JSON run reports and rendered charts.
package export

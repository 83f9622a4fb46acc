// Package render draws a chart from extracted data files into a PNG.
//
// Two engines are available. The gnuplot engine writes a plot script and
// feeds it to an external gnuplot process. The gonum engine draws the same
// chart in-process with gonum/plot, for hosts without gnuplot.
//
// Both engines write to a hidden temporary name next to the target and
// rename it into place on success, so a reader polling the output
// directory sees either the previous image or the new one.
package render

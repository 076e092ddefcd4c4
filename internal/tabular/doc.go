// Package tabular decodes the tabular formats published by statistics portals
// (CSV, XLSX, ODS, HTML tables and ZIP archives holding any of them) into a
// single in-memory Table and encodes that Table as CSV.
package tabular

// Package cmd implements the forgecred command tree.
package cmd

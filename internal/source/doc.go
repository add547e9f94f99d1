// Package source reads the outage schedule page and turns the rows of the
// monitored addresses into outage.Row values.
package source

// Package viewmodel holds the data the status page templates render.
package viewmodel

// StatusView describes whether a login is remembered on this device.
type StatusView struct {
	Saved      bool
	RetainDays int
	CSRFField  string
	CSRFToken  string
	NoticeHTML string // sanitized, rendered raw
}

// Package sanitizer reduces HTML mail bodies to text using bluemonday's strict policy.
package sanitizer

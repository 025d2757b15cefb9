// Package models defines the domain values that flow through a songdl run.
//
// The package contains three groups of types:
//
// 1. Inputs: what a source adapter produces
//   - [Track] : Immutable title/artist/album triple, optionally carrying a pre-resolved media reference
//
// 2. Resolution: what the search tiers produce
//   - [ResolvedMedia] : Media URL plus the [Tier] that found it
//
// 3. Outcomes: what the acquisition state machine reports
//   - [AcquisitionResult] : One terminal [Outcome] per Track with filename and error detail
//   - [Quality] : Validated bitrate setting handed to the downloader
//
// Tracks are values. Two runs over the same Track always derive the same output filename via [Track.Filename].
package models

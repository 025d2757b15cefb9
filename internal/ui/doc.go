// Package ui renders the progress of a download run.
//
// Two reporters consume the same [tasks.ProgressUpdate] channel:
//   - [Printer] : plain styled lines, one per finished track, then a summary naming the output directory
//   - [DownloadModel] : bubbletea program with a progress bar, a spinner for the in-flight track and a
//     scrolling list of finished tracks
//
// The model follows bubbletea's Init/Update/View pattern and receives run events via the Msg union type.
// Quitting (q or ctrl+c) cancels the run context and exits once the engine has stopped.
package ui

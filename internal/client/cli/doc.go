// Package cli provides the interactive gophchat command-line client.
//
// Typical flow: prompt for the shared password, log in (the password is
// encrypted with the server's public key before it leaves the process),
// then read commands until the user exits.
//
// Key features:
//   - Login / Logout
//   - Send text, images and files; edit and delete messages
//   - List and search history; save attachments to ./downloads
//   - Watch the live event stream in the background
//   - Show storage usage against the server quota
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

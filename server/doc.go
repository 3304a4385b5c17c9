// Package server exposes a Dispatcher as a small web page: a form with one
// text field whose submission is answered with the agent's response rendered
// from markdown to HTML.
package server

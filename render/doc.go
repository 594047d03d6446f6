// Package render is the default view of the shell. It keeps the content
// region, the search panel, the query input and user notices as HTML
// strings built with golang.org/x/net/html, so every dynamic value is
// escaped by the renderer and never concatenated into markup.
package render

package buffer

import "txdb/file"

// PageFormatter initializes the contents of a page that is about to become a
// new block of a file.
type PageFormatter interface {
	Format(page *file.Page)
}

// PageFormatterFunc adapts an ordinary function to a PageFormatter.
type PageFormatterFunc func(page *file.Page)

func (f PageFormatterFunc) Format(page *file.Page) {
	f(page)
}

// ZeroFormatter leaves the page zeroed.
var ZeroFormatter PageFormatter = PageFormatterFunc(func(*file.Page) {})

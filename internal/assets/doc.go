// Package assets supplies the card document template and its stylesheet.
//
// Three loaders implement AssetLoader:
//
//	EmbeddedLoader    built-in card.html and card.css
//	FilesystemLoader  a user directory laid out as styles/{name}.css and templates/{name}.html
//	AssetResolver     the directory first, the built-ins for anything it lacks
//
// A user directory may therefore override just the stylesheet or just the
// template. A template receives Title, Style and Content and must hold
// exactly one ".screenshot-target" element wrapping one "#card" element.
//
// Names cannot contain separators or dots, and FilesystemLoader rejects any
// file whose real path leaves the base directory.
package assets

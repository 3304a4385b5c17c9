// Package knowledge turns remote PDF documents into searchable chunks.
//
// A PDFURLBase downloads each URL, extracts the text of every page, splits it
// into overlapping chunks, embeds them and upserts them into a vectordb.VectorDB.
// Agents query it through the Searcher interface.
package knowledge

// Package pagekb extracts structured knowledge-base documents from
// scraped marketing web pages. It cleans raw DOM HTML, triages and
// classifies page images with a vision model, parses a flat section
// outline locally, has an LLM group that outline into a hierarchy and
// extract detailed content per section, and merges everything into one
// schema-consistent JSON document.
//
// This package contains domain types, interfaces, and dependency-free
// algorithms following Ben Johnson's Standard Package Layout.
// Implementations live in subdirectories named after their primary
// dependency (e.g., goquery/, gemini/, fs/).
package pagekb

// Package menu turns the published menu spreadsheet into typed menu items.
//
// It holds the pure part of the menu pipeline and performs no I/O:
//
//   - [ParseCSV] splits the exported CSV text into rows of trimmed fields.
//   - [MapRows] maps the fixed-column sheet layout onto [MenuItem] records,
//     defaulting malformed cells rather than failing the row.
//   - [ExtractCategories] derives the category list, with counts and icons.
//   - [Fallback] returns the bundled menu shown when the sheet is unusable.
//
// # Sheet Layout
//
// The first row is a header and is ignored. Data rows use the column order
//
//	Name, Description, Price, Category, Available, Calories, Scale, Image URL, Popular, ID
//
// Rows with fewer than [MinColumns] columns, or without a name, are dropped.
package menu

// Package interchange reads and writes the community record archive formats.
//
// Supported:
//   - SRGF v1.0: one account per file
//   - UIGF v4.0: the hkrpg section, any number of accounts
//
// Decode sniffs the format from the info header and validates the document.
// Importer stores one account's records as a new batch under the same rules
// as a refresh. Exporter renders stored records back into either format.
package interchange

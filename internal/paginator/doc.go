// Package paginator provides lazy page sources over the upstream record API.
//
//   - CursorPaginator walks one pool newest-first using the last seen id as
//     the cursor, with an optional stop id for incremental syncs.
//   - MergedPaginator merges several sorted paginators into one stream
//     without materializing any of them.
//   - Pacer enforces the minimum delay between consecutive requests.
package paginator

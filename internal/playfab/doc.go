// Package playfab provides the PlayFab Admin API client used to start
// segment exports and poll their status.
//
// Endpoints (all POST, JSON body, X-SecretKey header):
//   - /Admin/ExportPlayersInSegment
//   - /Admin/GetSegmentExport
//
// Base URL: https://{titleId}.playfabapi.com
//
// Calls are not retried. An error envelope or HTTP status >= 400 is returned
// as *APIError.
package playfab

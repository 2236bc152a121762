// Package models defines the records exchanged with the election backend
// and cached in the local session.
//
// JSON tags follow the backend's wire names exactly (aadhar, phone_no,
// blockchainInfo, party-wise statistics, and so on).
package models

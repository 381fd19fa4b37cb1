// Package models defines domain entities for the pacelist queueing service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs mapped from Spotify responses
//   - [Track] : Song metadata from the saved-tracks listing
//   - [AudioFeature] : Per-track analysis (tempo, playable URI, duration)
//   - [Playlist] : Basic playlist metadata
//   - [UserProfile] : The authenticated user's Spotify profile
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Credential] : Stored OAuth token set for one Spotify user
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models

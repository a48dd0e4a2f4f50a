// Package models defines the data model for the music discovery service.
//
// The central type is [User], the credential record for one Spotify
// account: tokens, expiry, and denormalized profile fields. A record is
// never persisted with an access token but no expiry, and vice versa;
// [User.SetAccessToken] keeps the pair together.
//
// [GeneratedTrack] records placeholder tracks produced for authenticated
// users by the generator.
package models

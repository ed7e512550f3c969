// Package cachestore implements the cache backend: an on-disk HTTP response
// cache addressed by synthetic request URLs.
//
// Each entry is one file named after the SHA-256 of its URL. The file holds
// the request URL on the first line followed by the dumped HTTP response,
// whose body is the JSON envelope.
package cachestore

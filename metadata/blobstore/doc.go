// Package blobstore provides metadata.BlobSource implementations backed by
// Redis and S3-compatible object storage.
//
// # Architecture boundaries
//
// Stores return raw statement blobs exactly as published. They do not decode,
// hash, or trust-check anything; integrity is verified by metadata.Ingest
// against the catalog's reference digest. A missing blob is reported as
// metadata.ErrBlobNotFound so that ingestion can record a deferred failure on
// the entry.
package blobstore

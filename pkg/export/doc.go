// Package export writes static HTML snapshots of element trees.
//
// Snapshot renders an element with a one-shot engine into an in-memory
// document and stores the resulting page. Listener markers are omitted, so
// the output is plain HTML.
//
//	store, _ := export.NewFileStore("dist")
//	err := export.Snapshot(ctx, store, "index.html", app(), export.Options{Title: "Demo"})
//
// S3Store writes the same pages to a bucket:
//
//	client, err := export.NewS3Client(ctx, "eu-west-1")
//	store := export.NewS3Store(client, "my-bucket", "snapshots/")
package export

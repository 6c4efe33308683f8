// Package geodex is a Go client for geodex, a map-oriented index of geotagged
// survey images backed by Redis with the Search and JSON modules.
//
// Images are grouped into collections and attributed to research sites. The map
// API buckets images by geohash at a depth derived from the zoom level, keeps a
// sample of image IDs per bucket and resolves them to display rows on demand.
//
//	client, _ := geodex.New(geodex.WithRedis("localhost:6379"))
//	defer client.Close()
//
//	client.Collections().Put(ctx, "flight-7", geodex.CollectionInfo{Name: "Flight 7"})
//	client.Index(ctx, images...)
//
//	box := geodex.NewBoundingBox(41, -106, 39, -105)
//	buckets, _ := client.Aggregate(ctx, box, 9, nil)
//	rows, _ := client.Lookup(ctx, buckets[0].SampleIDs()...)
//
// A Session keeps a live view: viewport and filter changes re-run the
// aggregation in the background and stale answers are dropped.
//
//	s := client.NewSession(0)
//	_ = s.SetViewport(geodex.Viewport{Box: box, Zoom: 9})
//	_ = s.Settle(ctx)
//	view, _ := s.View()
package geodex

// Package immistat answers questions about immigrant populations in the
// districts and governorates of Lebanon.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/immistat/engine"
//	    "github.com/spektr-org/immistat/loader"
//	)
//
//	res, err := loader.Load(ctx, loader.FileSource{Path: "leb immigrants.csv"})
//	result, err := engine.Execute(engine.QuerySpec{View: "top_districts", N: 5}, res.Dataset)
//
// The loader reads a CSV or XLSX table (local or on S3) and discovers its
// "Number of <Category>" columns. The engine ranks, groups and breaks down the
// resulting Dataset; it never performs I/O. cmd/immistat is the CLI and HTTP
// front end.
package immistat

// Package version reports build metadata of the docmapper binary.
//
// Values are set at build time with ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ncobase/docmapper/version.Version=1.2.3 \
//	  -X github.com/ncobase/docmapper/version.Branch=main \
//	  -X github.com/ncobase/docmapper/version.Revision=abc1234 \
//	  -X 'github.com/ncobase/docmapper/version.BuiltAt=$(date)'"
//
// Unset values fall back to the module version and VCS stamp embedded by the
// Go toolchain.
package version

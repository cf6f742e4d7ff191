// Package enums provides type-safe enumeration types shared by the store, service and web layers.
//
// This package uses code generation via go-pkgz/enum. The enum types are defined as unexported
// integer types in this file, and the go:generate directives create the corresponding exported
// types with String, Parse, Scan/Value and MarshalText/UnmarshalText methods in *_enum.go files.
//
// Usage:
//
//	role, err := enums.ParseRole("employer")
//	if err != nil {
//	    // reject input, role is a closed set
//	}
//	fmt.Println(role.String()) // "employer"
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/web/enums
//
// The unexported type definitions below are only used by the generator.
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type role -lower
//go:generate go run github.com/go-pkgz/enum@latest -type errorKind -lower

// role is the fixed capability class of a registered user.
// Use the exported Role type and its constants in actual code.
type role int

const (
	roleEmployer role = iota
	roleSeeker
)

// errorKind classifies service errors for status mapping.
// Use the exported ErrorKind type and its constants in actual code.
type errorKind int

const (
	errorKindInternal errorKind = iota
	errorKindUnauthenticated
	errorKindForbidden
	errorKindNotFound
	errorKindConflict
	errorKindValidation
)
